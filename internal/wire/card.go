package wire

// Color of a card. Black cards are the trump suit and are never communicable.
type Color string

const (
	Yellow Color = "yellow"
	Green  Color = "green"
	Pink   Color = "pink"
	Blue   Color = "blue"
	Black  Color = "black"
)

// Card is an immutable value: one of five colors, number 1..9.
type Card struct {
	Color  Color `json:"color"`
	Number int   `json:"number"`
}
