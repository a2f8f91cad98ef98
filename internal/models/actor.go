package models

// Role identifies which side of the marketplace an actor belongs to
type Role string

const (
	RoleCustomer Role = "customer"
	RoleTailor   Role = "tailor"
)

// Valid reports whether the role is one the settlement flow recognizes
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleTailor
}

// Actor is the authenticated party invoking an order or settlement action.
// Authorization is capability-based on this single type: whether an actor
// may release, refund, or confirm is decided here rather than by string
// comparisons scattered over handlers.
type Actor struct {
	ID   string
	Role Role
}

// CanRelease reports whether the actor may release the escrowed funds of
// the given order to its tailor
func (a Actor) CanRelease(order *Order) bool {
	return a.Role == RoleCustomer && a.ID == order.CustomerID
}

// CanRefund reports whether the actor may refund the escrowed funds of the
// given order back to its customer
func (a Actor) CanRefund(order *Order) bool {
	return a.Role == RoleTailor && a.ID == order.TailorID
}

// CanConfirm reports whether the actor may acknowledge the order's initial
// payment
func (a Actor) CanConfirm(order *Order) bool {
	return a.Role == RoleTailor && a.ID == order.TailorID
}

// CanView reports whether the actor is a party to the order
func (a Actor) CanView(order *Order) bool {
	return a.ID == order.CustomerID || a.ID == order.TailorID
}
