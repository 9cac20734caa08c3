package gui

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gdamore/tcell/v2"
)

// Terminal safe color palette is available here
// Themes should be limited to the colors defined in this reference
// https://upload.wikimedia.org/wikipedia/commons/1/15/Xterm_256color_chart.svg

// Theme is used for dynamically coloring the UI
type Theme struct {
	Name        string
	SquareDark  tcell.Color
	SquareLight tcell.Color
	// SquareHigh marks the squares of the last move.
	SquareHigh     tcell.Color
	SquareSelected tcell.Color
	SquareHint     tcell.Color
	SquareCheck    tcell.Color
	White          tcell.Color
	Black          tcell.Color
	Msg            tcell.Color
	Rank           tcell.Color
	File           tcell.Color
}

// ThemeHex is the JSON form of a Theme, colors as "#rrggbb" or names.
type ThemeHex struct {
	Name           string `json:"name"`
	SquareDark     string `json:"squareDark"`
	SquareLight    string `json:"squareLight"`
	SquareHigh     string `json:"squareHigh"`
	SquareSelected string `json:"squareSelected"`
	SquareHint     string `json:"squareHint"`
	SquareCheck    string `json:"squareCheck"`
	White          string `json:"white"`
	Black          string `json:"black"`
	Msg            string `json:"msg"`
	Rank           string `json:"rank"`
	File           string `json:"file"`
}

// fmtHex returns a one character hex for the ColorDefault
// and otherwise it returns a standard hex. This is useful
// because it allows ColorDefault to be imported from the config
// and parsed properly rather than being interpreted as black
func fmtHex(v int32) string {
	if v == -1 {
		return "#0"
	}
	return fmt.Sprintf("#%06x", v)
}

// Hex converts a Theme to a ThemeHex
func (t Theme) Hex() ThemeHex {
	return ThemeHex{
		Name:           t.Name,
		SquareDark:     fmtHex(t.SquareDark.Hex()),
		SquareLight:    fmtHex(t.SquareLight.Hex()),
		SquareHigh:     fmtHex(t.SquareHigh.Hex()),
		SquareSelected: fmtHex(t.SquareSelected.Hex()),
		SquareHint:     fmtHex(t.SquareHint.Hex()),
		SquareCheck:    fmtHex(t.SquareCheck.Hex()),
		White:          fmtHex(t.White.Hex()),
		Black:          fmtHex(t.Black.Hex()),
		Msg:            fmtHex(t.Msg.Hex()),
		Rank:           fmtHex(t.Rank.Hex()),
		File:           fmtHex(t.File.Hex()),
	}
}

// Theme converts a ThemeHex to a Theme
func (t ThemeHex) Theme() Theme {
	return Theme{
		Name:           t.Name,
		SquareDark:     tcell.GetColor(t.SquareDark),
		SquareLight:    tcell.GetColor(t.SquareLight),
		SquareHigh:     tcell.GetColor(t.SquareHigh),
		SquareSelected: tcell.GetColor(t.SquareSelected),
		SquareHint:     tcell.GetColor(t.SquareHint),
		SquareCheck:    tcell.GetColor(t.SquareCheck),
		White:          tcell.GetColor(t.White),
		Black:          tcell.GetColor(t.Black),
		Msg:            tcell.GetColor(t.Msg),
		Rank:           tcell.GetColor(t.Rank),
		File:           tcell.GetColor(t.File),
	}
}

var ErrNoTheme = errors.New("theme: no theme found")

// ImportThemes returns a converted Theme from a slice of ThemeHex
// entities if its name matches the want argument. Built-in themes are
// searched after the provided ones.
func ImportThemes(want string, themes []ThemeHex) (Theme, error) {
	for _, t := range themes {
		if t.Name == want {
			return t.Theme(), nil
		}
	}
	for _, t := range Themes {
		if t.Name == want {
			return t, nil
		}
	}
	return Theme{}, fmt.Errorf("%w: %q", ErrNoTheme, want)
}

// LoadThemes reads a JSON array of themes.
func LoadThemes(r io.Reader) ([]ThemeHex, error) {
	var themes []ThemeHex
	if err := json.NewDecoder(r).Decode(&themes); err != nil {
		return nil, fmt.Errorf("decode themes: %w", err)
	}
	return themes, nil
}

// ThemeBasic is the default theme
var ThemeBasic = Theme{
	Name:           "basic",
	SquareDark:     tcell.Color188,
	SquareLight:    tcell.Color230,
	SquareHigh:     tcell.Color226,
	SquareSelected: tcell.Color214,
	SquareHint:     tcell.Color223,
	SquareCheck:    tcell.Color218,
	White:          tcell.Color232,
	Black:          tcell.Color232,
	Msg:            tcell.Color160,
	Rank:           tcell.Color247,
	File:           tcell.Color247,
}

// ThemeClassic uses the board colors of the first chessterm release.
var ThemeClassic = Theme{
	Name:           "classic",
	SquareDark:     tcell.ColorGreen,
	SquareLight:    tcell.ColorBlue,
	SquareHigh:     tcell.ColorYellow,
	SquareSelected: tcell.ColorRed,
	SquareHint:     tcell.ColorOrange,
	SquareCheck:    tcell.ColorPurple,
	White:          tcell.ColorWhite,
	Black:          tcell.ColorBlack,
	Msg:            tcell.ColorRed,
	Rank:           tcell.ColorDefault,
	File:           tcell.ColorDefault,
}

var Themes = []Theme{ThemeBasic, ThemeClassic}
