package engine

import (
	"fmt"

	"matching-engine-go/order"
)

func errTerminalResting(o *order.Order) error {
	return fmt.Errorf("order %s resting in terminal status %s", o.ID, o.Status)
}

func errLevelMismatch(q *OrderQueue, sum int64) error {
	return fmt.Errorf("level %s: volume %d, members %d, orders %d", q.price, q.volume, sum, q.Len())
}

func errIndexMismatch(resting, indexed int) error {
	return fmt.Errorf("index holds %d orders, book holds %d", indexed, resting)
}
