package observable

type subscription[T any] struct {
	id      SubscriptionID
	handler Handler[T]
}

// subscribers is an ordered handler list shared by every container type.
type subscribers[T any] struct {
	next SubscriptionID
	list []subscription[T]
}

func (s *subscribers[T]) add(h Handler[T]) SubscriptionID {
	s.next++
	s.list = append(s.list, subscription[T]{id: s.next, handler: h})
	return s.next
}

func (s *subscribers[T]) remove(id SubscriptionID) bool {
	for i, sub := range s.list {
		if sub.id == id {
			// Copy-on-write so a dispatch already iterating keeps its snapshot.
			list := make([]subscription[T], 0, len(s.list)-1)
			list = append(list, s.list[:i]...)
			s.list = append(list, s.list[i+1:]...)
			return true
		}
	}
	return false
}

func (s *subscribers[T]) len() int {
	return len(s.list)
}

// dispatch calls every handler in registration order, stopping at the first
// error. The guard is held for the duration.
func (s *subscribers[T]) dispatch(g *Guard, change Change[T]) error {
	if len(s.list) == 0 {
		return nil
	}
	release := g.Enter()
	defer release()

	for _, sub := range s.list {
		if err := sub.handler(change); err != nil {
			return err
		}
	}
	return nil
}
