// Package page models the listing page the scanner annotates.
package page

import "csgo-pricecheck/internal/models"

// Card is one rendered item card. Implementations must be comparable and
// two values must be equal exactly when they denote the same element; the
// scanner keys its processed side-table on them.
type Card interface {
	ItemName() (string, bool)
	Subcategory() (string, bool)
	// PriceText is the displayed coin price as rendered, e.g. "1,234.56".
	PriceText() (string, bool)
	// WearClasses is the class list of the wear bar, empty without one.
	WearClasses() string

	HasAnnotation() bool
	Annotate(a Annotation)
	RemoveAnnotation() bool
}

// Annotation is the fair-value badge added to a card.
type Annotation struct {
	Label string
	Tier  models.Tier
}

// Subtree is a freshly inserted part of the page.
type Subtree interface {
	Cards() []Card
}

// Mutation reports subtrees inserted by one render step.
type Mutation struct {
	Added []Subtree
}

// Source is a live page: what is rendered now plus a stream of insertions.
// The stream is never restarted; it closes when the page goes away.
type Source interface {
	Cards() []Card
	Changes() <-chan Mutation
	ClearAnnotations() int
}
