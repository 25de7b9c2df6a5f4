package game

// Cell is one occupied board position. Coordinates are strings because
// the browser client submits form values verbatim.
type Cell struct {
	X     string `json:"x"`
	Y     string `json:"y"`
	Color string `json:"color"`
}

// BoardModel is the board state sent to clients on create and join
type BoardModel struct {
	Dimensions int    `json:"dimensions"`
	Cells      []Cell `json:"cells"`
}

// placeholderModel returns the demo board used until real turn
// resolution lands. TODO: replace with per-game board state once move
// handling is implemented in the game_action callback.
func placeholderModel(dimensions int) BoardModel {
	return BoardModel{
		Dimensions: dimensions,
		Cells: []Cell{
			{X: "2", Y: "2", Color: "white"},
			{X: "1", Y: "1", Color: "black"},
			{X: "4", Y: "1", Color: "white"},
		},
	}
}
