// Package columnar provides typed, append-only column buffers for the data
// logger.
//
// A group's samples are flattened into scalar columns (see package field)
// and each column is held in a slice of its native Go type. This keeps a
// buffered sample at the size of its scalars: a float64 costs 8 bytes, a
// bool 1 byte, and a string its length plus a small header.
//
// # Binary layout
//
// Batch.Encode writes columns back to back in schema order. Within a column:
//
//   - float64, int64: 8 bytes little endian per value
//   - float32: 4 bytes little endian per value
//   - bool: one byte, 0 or 1
//   - string: uvarint length followed by the UTF-8 bytes
//
// The row count is carried out of band by the frame header of the storage
// layer, so a payload on its own is not self-describing.
//
// # Text form
//
// Column.Text gives the canonical text of a value. Floats use the shortest
// representation that round-trips at their own precision, integers are
// decimal, booleans are 1 and 0, and strings are verbatim.
package columnar
