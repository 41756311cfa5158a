package models

import "fmt"

// QuantityTriple is the (available, allocated, used) state of a lot line,
// constrained against Total. It carries the pure arithmetic so the invariant
// available + allocated + used == total can be checked independently of the
// database guards that enforce it under concurrency.
type QuantityTriple struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Allocated int `json:"allocated"`
	Used      int `json:"used"`
}

// Validate checks conservation and non-negativity.
func (q QuantityTriple) Validate() error {
	if q.Available < 0 || q.Allocated < 0 || q.Used < 0 || q.Total < 0 {
		return fmt.Errorf("quantity triple has negative component: %+v", q)
	}
	if q.Available+q.Allocated+q.Used != q.Total {
		return fmt.Errorf("quantity triple violates conservation: %d+%d+%d != %d",
			q.Available, q.Allocated, q.Used, q.Total)
	}
	return nil
}

// Reserve moves qty from available to allocated. It fails rather than
// overdraw.
func (q QuantityTriple) Reserve(qty int) (QuantityTriple, error) {
	if qty <= 0 {
		return q, fmt.Errorf("reserve quantity must be positive, got %d", qty)
	}
	if q.Available < qty {
		return q, fmt.Errorf("reserve %d exceeds available %d", qty, q.Available)
	}
	q.Available -= qty
	q.Allocated += qty
	return q, nil
}

// Release moves qty from allocated back to available. Inverse of Reserve,
// used on order cancellation.
func (q QuantityTriple) Release(qty int) (QuantityTriple, error) {
	if qty <= 0 {
		return q, fmt.Errorf("release quantity must be positive, got %d", qty)
	}
	if q.Allocated < qty {
		return q, fmt.Errorf("release %d exceeds allocated %d", qty, q.Allocated)
	}
	q.Allocated -= qty
	q.Available += qty
	return q, nil
}

// CommitUsed moves qty from allocated to used on delivery.
func (q QuantityTriple) CommitUsed(qty int) (QuantityTriple, error) {
	if qty <= 0 {
		return q, fmt.Errorf("commit quantity must be positive, got %d", qty)
	}
	if q.Allocated < qty {
		return q, fmt.Errorf("commit %d exceeds allocated %d", qty, q.Allocated)
	}
	q.Allocated -= qty
	q.Used += qty
	return q, nil
}

// Receive grows total and available together, used when stock is merged
// into an existing line.
func (q QuantityTriple) Receive(qty int) (QuantityTriple, error) {
	if qty <= 0 {
		return q, fmt.Errorf("receive quantity must be positive, got %d", qty)
	}
	q.Total += qty
	q.Available += qty
	return q, nil
}
