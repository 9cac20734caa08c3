// Package gui is the terminal front end of the chess client: a tview board
// driven by mouse or keyboard, and a line mode for plain terminals.
package gui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/qnkhuat/chessterm/pkg/chess"
	"github.com/qnkhuat/chessterm/pkg/client"
)

const (
	pageMain    = "main"
	pagePromote = "promote"
	pageEnd     = "end"
)

var promotionKinds = []chess.Kind{chess.Queen, chess.Rook, chess.Bishop, chess.Knight}

// UI renders a client session and feeds clicks back into it.
type UI struct {
	App    *tview.Application
	screen tcell.Screen
	client *client.Client
	theme  Theme

	pages    *tview.Pages
	board    *tview.Table
	status   *tview.TextView
	moves    *tview.TextView
	captured [2]*tview.TextView
}

func New(c *client.Client, theme Theme) (*UI, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("open screen: %w", err)
	}
	ui := &UI{
		App:    tview.NewApplication().SetScreen(screen),
		screen: screen,
		client: c,
		theme:  theme,
		board:  tview.NewTable(),
		status: tview.NewTextView().SetTextColor(theme.Msg),
		moves:  tview.NewTextView(),
	}
	for i := range ui.captured {
		ui.captured[i] = tview.NewTextView()
	}

	exitBtn := tview.NewButton(string(LabelExit)).SetSelectedFunc(ui.App.Stop)
	player := tview.NewTextView().SetText(fmt.Sprintf("%s (%s)", c.Nick, c.Color()))

	side := tview.NewGrid().
		SetColumns(0).
		SetRows(1, 1, 2, 1, 1, 0, 1).
		AddItem(player, 0, 0, 1, 1, 0, 0, false).
		AddItem(ui.status, 1, 0, 1, 1, 0, 0, false).
		AddItem(ui.captured[c.Color().Opposite()], 3, 0, 1, 1, 0, 0, false).
		AddItem(ui.captured[c.Color()], 4, 0, 1, 1, 0, 0, false).
		AddItem(ui.moves, 5, 0, 1, 1, 0, 0, false).
		AddItem(exitBtn, 6, 0, 1, 1, 0, 0, false)
	ui.moves.SetBorder(true).SetTitle("Moves")

	layout := tview.NewGrid().
		SetRows(-1, numRows+1, -1).
		SetColumns(-1, 2*numCols+4, 30, -1).
		AddItem(tview.NewBox(), 0, 0, 1, 4, 0, 0, false).
		AddItem(ui.board, 1, 1, 1, 1, 0, 0, true).
		AddItem(side, 1, 2, 1, 1, 0, 0, false).
		AddItem(tview.NewBox(), 2, 0, 1, 4, 0, 0, false)

	ui.pages = tview.NewPages().AddPage(pageMain, layout, true, true)
	ui.initBoard()
	c.SetObserver(ui)
	ui.render()
	return ui, nil
}

func (ui *UI) initBoard() {
	view := ui.client.Color()
	ui.board.SetSelectable(true, true)
	row, col := cellOf(chess.Pos(4, 1), view)
	if view == chess.Black {
		row, col = cellOf(chess.Pos(4, 6), view)
	}
	ui.board.Select(row, col).SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEscape {
			ui.App.Stop()
		}
	}).SetSelectedFunc(func(row, col int) {
		pos := cellPosition(row, col, view)
		if !pos.Valid() {
			return
		}
		if ui.client.Click(pos) {
			ui.showPromotion()
		}
		ui.render()
	})
}

func (ui *UI) showPromotion() {
	labels := make([]string, len(promotionKinds))
	for i, k := range promotionKinds {
		labels[i] = k.String()
	}
	modal := tview.NewModal().
		SetText(string(LabelPromote)).
		AddButtons(labels).
		SetDoneFunc(func(i int, _ string) {
			if i >= 0 && i < len(promotionKinds) {
				ui.client.Promote(promotionKinds[i])
			} else {
				ui.client.CancelPromotion()
			}
			ui.pages.RemovePage(pagePromote)
			ui.App.SetFocus(ui.board)
			ui.render()
		})
	ui.pages.AddPage(pagePromote, modal, false, true)
}

func (ui *UI) showEnd() {
	modal := tview.NewModal().
		SetText(string(Status(ui.client))).
		AddButtons([]string{string(LabelExit)}).
		SetDoneFunc(func(int, string) {
			ui.App.Stop()
		})
	ui.pages.RemovePage(pagePromote)
	ui.pages.AddPage(pageEnd, modal, false, true)
}

// render must run on the application goroutine.
func (ui *UI) render() {
	renderBoard(ui.board, ui.client.Squares(), ui.client.History(), ui.client.Color(), ui.theme)
	ui.status.SetText(string(Status(ui.client)))
	ui.moves.SetText(moveList(ui.client.History()))
	for c, view := range ui.captured {
		view.SetText(capturedList(ui.client.Captured(chess.Color(c))))
	}
}

// PlaySound rings the terminal bell for events worth a look.
func (ui *UI) PlaySound(s chess.Sound) {
	switch s {
	case chess.SoundCheck, chess.SoundGameOver, chess.SoundIllegal:
		ui.screen.Beep()
	}
}

// Redraw schedules a render. It is called with the client locked, so the
// update is queued from another goroutine.
func (ui *UI) Redraw() {
	go ui.App.QueueUpdateDraw(ui.render)
}

// Run shows the UI until the player exits. When the session ends first the
// outcome is shown until dismissed.
func (ui *UI) Run() error {
	go func() {
		<-ui.client.Done()
		ui.App.QueueUpdateDraw(func() {
			ui.render()
			ui.showEnd()
		})
	}()
	return ui.App.SetRoot(ui.pages, true).EnableMouse(true).Run()
}
