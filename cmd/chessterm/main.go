package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/chzyer/readline"
	petname "github.com/dustinkirkland/golang-petname"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/qnkhuat/chessterm/pkg"
	"github.com/qnkhuat/chessterm/pkg/client"
	"github.com/qnkhuat/chessterm/pkg/gui"
)

const ServerPort = "127.0.0.1:12312"

var (
	info = color.New(color.FgCyan)
	fail = color.New(color.FgRed)
)

func main() {
	serverAddr := flag.String("server", ServerPort, "address of the chess server")
	nick := flag.String("nick", "", "name shown to you, random when empty")
	plain := flag.Bool("plain", false, "type moves instead of using the board UI")
	themeName := flag.String("theme", gui.ThemeBasic.Name, "board theme")
	themeFile := flag.String("themes", "", "JSON file with extra themes")
	logPath := flag.String("log", filepath.Join(os.TempDir(), "chessterm.log"), "path to log file")
	flag.Parse()

	if *nick == "" {
		*nick = petname.Generate(2, "-")
	}
	log, closer, err := pkg.InitLog(*logPath, "client", zerolog.DebugLevel)
	if err != nil {
		fail.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(*serverAddr, *nick, *plain, *themeName, *themeFile, log); err != nil {
		log.Error().Err(err).Msg("client stopped")
		fail.Fprintln(os.Stderr, err)
		closer.Close()
		os.Exit(1)
	}
}

func loadTheme(name, file string) (gui.Theme, error) {
	var extra []gui.ThemeHex
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return gui.Theme{}, err
		}
		defer f.Close()
		if extra, err = gui.LoadThemes(f); err != nil {
			return gui.Theme{}, err
		}
	}
	return gui.ImportThemes(name, extra)
}

func run(addr, nick string, plain bool, themeName, themeFile string, log zerolog.Logger) error {
	if !plain && !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("stdout is not a terminal, use -plain")
	}
	theme, err := loadTheme(themeName, themeFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	info.Printf("Hi %s, waiting for an opponent on %s...\n", nick, addr)
	c, err := client.Connect(ctx, addr, nick, log)
	if err != nil {
		return err
	}
	defer c.Close()
	go c.Run(ctx)

	if plain {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "> ",
			InterruptPrompt: "^C",
			EOFPrompt:       "quit",
		})
		if err != nil {
			return err
		}
		defer rl.Close()
		info.Printf("You play %s.\n", c.Color())
		if err := gui.NewPlain(c, rl.Stdout()).Run(c, rl); err != nil {
			return err
		}
	} else {
		ui, err := gui.New(c, theme)
		if err != nil {
			return err
		}
		if err := ui.Run(); err != nil {
			return err
		}
	}

	if len(c.History()) > 0 {
		if pgn, err := c.PGN(); err == nil {
			fmt.Println(pgn)
		}
	}
	return nil
}
