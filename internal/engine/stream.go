package engine

// Item is one streamed extraction outcome: either a fully merged record, or
// the original record paired with the enrichment error that degraded it.
// The two shapes are never merged; consumers must branch on Degraded.
type Item struct {
	Record map[string]any
	Err    string
}

// Degraded reports whether enrichment failed for this record. Degraded items
// are skipped for delivery but do not stop the stream.
func (it Item) Degraded() bool {
	return it.Err != ""
}

// Stream is a pull-based record sequence. Records are produced lazily, one at
// a time, as the pagination loop advances; there is no internal buffering of
// the full run and no background goroutine.
//
// Usage follows the scanner idiom:
//
//	for stream.Next() {
//		item := stream.Item()
//		...
//	}
//	if err := stream.Err(); err != nil { ... }
type Stream struct {
	advance func() (Item, bool, *Failure)
	item    Item
	failure *Failure
	done    bool
}

// Next advances to the next item. It returns false at the end of the stream
// or when a terminal failure occurred; check Err to distinguish.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	item, ok, failure := s.advance()
	if failure != nil {
		s.failure = failure
		s.done = true
		return false
	}
	if !ok {
		s.done = true
		return false
	}
	s.item = item
	return true
}

// Item returns the current item. Valid only after a true Next.
func (s *Stream) Item() Item {
	return s.item
}

// Err returns the terminal failure, if any, once Next has returned false.
func (s *Stream) Err() error {
	if s.failure == nil {
		return nil
	}
	return s.failure
}
