// internal/game/pattern.go
package game

// lines holds the winning cell positions of a 4x4 board in the order they are
// checked: rows, then columns, then the two diagonals.
var lines = func() [][4]int {
	var out [][4]int
	for r := 0; r < 4; r++ {
		out = append(out, [4]int{r * 4, r*4 + 1, r*4 + 2, r*4 + 3})
	}
	for c := 0; c < 4; c++ {
		out = append(out, [4]int{c, c + 4, c + 8, c + 12})
	}
	out = append(out, [4]int{0, 5, 10, 15}, [4]int{3, 6, 9, 12})
	return out
}()

// CheckPattern returns the card ids of the first fully covered line on the
// board, or nil when no line is complete. Boards that are not exactly
// BoardSize cells never match.
func CheckPattern(board []int, selected map[int]bool) []int {
	if len(board) != BoardSize {
		return nil
	}
	for _, line := range lines {
		covered := true
		for _, pos := range line {
			if !selected[board[pos]] {
				covered = false
				break
			}
		}
		if covered {
			return []int{board[line[0]], board[line[1]], board[line[2]], board[line[3]]}
		}
	}
	return nil
}

// IsLine reports whether ids are exactly the four cards of one line of board.
func IsLine(board []int, ids []int) bool {
	if len(board) != BoardSize || len(ids) != 4 {
		return false
	}
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	if len(want) != 4 {
		return false
	}
	for _, line := range lines {
		match := true
		for _, pos := range line {
			if !want[board[pos]] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// ValidBoard reports whether board has BoardSize distinct catalog card ids.
func ValidBoard(board []int) bool {
	if len(board) != BoardSize {
		return false
	}
	seen := make(map[int]bool, BoardSize)
	for _, id := range board {
		if _, ok := CardByID(id); !ok || seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}
