package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"softstep/config"
	"softstep/debug"
	"softstep/device"
	"softstep/theme"
	"softstep/tui"
)

func main() {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "-debug", "--debug", "-d":
			if err := debug.Enable(); err != nil {
				fmt.Printf("debug log: %v\n", err)
			}
		case "--help", "-h":
			usage()
			return
		default:
			fmt.Printf("unknown flag %q\n\n", arg)
			usage()
			os.Exit(1)
		}
	}
	defer debug.Disable()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config: %v\n", err)
		os.Exit(1)
	}

	th := theme.New(loadPalette())

	// Watch for the controller coming and going
	watcher := device.NewWatcher(cfg.Device.Selector)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	fmt.Println("softstep monitor")
	fmt.Println("Plug the controller in any time - it will be picked up automatically")
	fmt.Println("")

	m := tui.NewModel(watcher, th, *cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// loadPalette prefers a user palette from the config dir and falls back
// to the built-in pressure ramp.
func loadPalette() *theme.Palette {
	dir, err := config.ConfigDir()
	if err != nil {
		return theme.Pressure()
	}
	palette, err := theme.LoadGPL(filepath.Join(dir, "palette.gpl"))
	if err != nil {
		return theme.Pressure()
	}
	return palette
}

func usage() {
	fmt.Println("stepmon - live monitor for the SoftStep controller")
	fmt.Println("")
	fmt.Println("Flags:")
	fmt.Println("  -d, --debug   write a debug log to ~/.config/softstep/debug.log")
	fmt.Println("  -h, --help    this help")
}
