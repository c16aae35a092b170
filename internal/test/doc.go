// Derived from Gopher2600 (https://github.com/JetSetIlly/Gopher2600).
//
// Gopher2600 is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gopher2600 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Gopher2600.  If not, see <https://www.gnu.org/licenses/>.

// Package test holds small helpers that remove boilerplate from tests written
// against the standard testing package.
//
// The Expect functions report a failure and carry on. The Demand functions
// stop the test, and should be used when later checks depend on the value.
//
// Success and failure are judged by type: a bool is successful when true and
// an error is successful when nil. A nil interface counts as success, which is
// how a nil error arrives when passed as an interface{}.
//
// CompareWriter captures output written through an io.Writer so that it can
// be compared with an expected string.
package test
