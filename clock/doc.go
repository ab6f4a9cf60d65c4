/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

/*
Package clock reads the leap second state the kernel keeps for the system clock.

When NTP daemons learn about an upcoming leap second they arm the kernel with
STA_INS or STA_DEL, and on the last day of the half-year the kernel reports
TIME_INS or TIME_DEL from adjtimex(2). The pool uses this as the leap flag of
the host clock source.
*/
package clock
