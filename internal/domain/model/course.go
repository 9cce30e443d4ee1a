package model

// Course is the catalog entry for a course.
type Course struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
}

func (c *Course) IsZero() bool { return c == nil || c.ID == "" }

// Subscription is a validity option sold for a course (e.g. 12 months access).
type Subscription struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	ValidityMonths int    `json:"validityMonths"`
	Price          int64  `json:"price"`
}
