// Package export encodes event lists into portable calendar files.
//
// Two formats are supported: iCalendar (.ics) and CSV (.csv). Encoding is a
// pure function of the input list: the same ordered list always produces the
// same bytes, no I/O is performed and events are neither reordered nor
// deduplicated.
package export
