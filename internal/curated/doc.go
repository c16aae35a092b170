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

// Package curated wraps the plain Go error type with pattern based matching.
//
// Errors are created with Errorf(), which takes a pattern and placeholder
// values in the same way as fmt.Errorf(). The pattern is kept alongside the
// values so that callers can test for a specific kind of error without
// comparing formatted strings:
//
//	err := curated.Errorf("table width out of range: %d", w)
//	if curated.Is(err, "table width out of range: %d") {
//		...
//	}
//
// Has() searches the whole chain. A curated error passed as a value to
// another curated error forms a chain:
//
//	f := curated.Errorf("configuration error: %v", err)
//	curated.Has(f, "table width out of range: %d") // true
//	curated.Is(f, "table width out of range: %d")  // false
//
// Error() normalises the message by removing duplicate adjacent parts, where
// parts are separated by ": ". Wrapping an error whose message already begins
// with the wrapper's prefix does not repeat the prefix.
//
// Patterns should be stored as exported constants next to the code that
// raises them.
package curated
