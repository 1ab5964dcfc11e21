package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fogleman/ease"

	"softstep/debug"
	"softstep/device"
	"softstep/engine"
	"softstep/wire"
)

func main() {
	args := os.Args[:1]
	for _, a := range os.Args[1:] {
		if a == "-debug" || a == "--debug" {
			if err := debug.Enable(); err != nil {
				fmt.Printf("debug log: %v\n", err)
			}
			continue
		}
		args = append(args, a)
	}
	os.Args = args
	defer debug.Disable()

	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "detect":
		detect()
	case "display":
		testDisplay(arg(3), arg(2))
	case "leds":
		testLEDs(arg(2))
	case "backlight":
		testBacklight(arg(2) == "on", arg(3))
	case "standalone":
		setStandalone(arg(2) == "on", arg(3))
	case "status":
		testStatus(arg(2))
	case "monitor":
		monitor(arg(2))
	default:
		usage()
	}
}

func arg(i int) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return ""
}

func usage() {
	fmt.Println("SoftStep Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                    - List MIDI and serial ports")
	fmt.Println("  detect                  - Find a SoftStep")
	fmt.Println("  display <text> [port]   - Put text on the LCD")
	fmt.Println("  leds [port]             - Run an LED chase")
	fmt.Println("  backlight on|off [port] - Switch the backlight")
	fmt.Println("  standalone on|off [port]- Hand control to or from the device")
	fmt.Println("  status [port]           - Query firmware status")
	fmt.Println("  monitor [port]          - Print pad events until Ctrl+C")
	fmt.Println("")
	fmt.Println("Add -debug to write a debug log to ~/.config/softstep/debug.log")
}

func listPorts() {
	fmt.Println("=== Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ch := make(chan []device.PortInfo, 1)
	go func() {
		ports, err := device.List()
		if err != nil {
			fmt.Printf("list error: %v\n", err)
		}
		ch <- ports
	}()

	select {
	case ports := <-ch:
		for i, p := range ports {
			marker := " "
			if p.Likely {
				marker = "*"
			}
			kind := "midi"
			if p.Serial {
				kind = "serial"
			}
			fmt.Printf(" %s %d: [%s] %s\n", marker, i, kind, p.Name)
		}
		if len(ports) == 0 {
			fmt.Println("  no ports found")
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! The MIDI backend is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
	}
}

func detect() {
	fmt.Println("Looking for a SoftStep...")

	ports, err := device.List()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	found := false
	for _, p := range ports {
		if p.Likely {
			fmt.Printf("Found: %s (open with selector %q)\n", p.Name, p.Selector)
			found = true
		}
	}
	if found {
		fmt.Println("\nSoftStep detected!")
	} else {
		fmt.Println("\nSoftStep not found")
	}
}

func open(selector string) device.Transport {
	t, err := device.Open(selector)
	if err != nil {
		fmt.Printf("Error opening controller: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Using: %s\n", t.String())
	return t
}

func testDisplay(text, selector string) {
	if text == "" {
		text = "TEST"
	}
	t := open(selector)
	defer t.Close()

	fitted := wire.FitDisplay(text)
	fmt.Printf("Writing %q to the display...\n", fitted)
	if err := t.Send(wire.EncodeDisplay(text)); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Done!")
}

func testLEDs(selector string) {
	t := open(selector)
	defer t.Close()

	fmt.Println("Running an LED chase (green, red, yellow)...")

	for _, color := range []wire.Color{wire.Green, wire.Red, wire.Yellow} {
		for step := 0; step < wire.LedCount; step++ {
			if err := setLed(t, step, color, wire.On); err != nil {
				fmt.Printf("Error: %v\n", err)
				return
			}
			// accelerate along the strip
			frac := float64(step) / float64(wire.LedCount-1)
			delay := 40 + 160*(1-ease.OutQuad(frac))
			time.Sleep(time.Duration(delay) * time.Millisecond)
			if err := ledOff(t, step); err != nil {
				fmt.Printf("Error: %v\n", err)
				return
			}
		}
	}

	fmt.Println("Clearing...")
	for led := 0; led < wire.LedCount; led++ {
		if err := ledOff(t, led); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
	}
	fmt.Println("Done!")
}

func setLed(t device.Transport, led int, color wire.Color, mode wire.LedMode) error {
	msg, err := wire.EncodeLed(wire.LedCommand{Led: led, Color: color, Mode: mode})
	if err != nil {
		return err
	}
	return t.Send(msg)
}

// ledOff clears both color elements; yellow lights two of them.
func ledOff(t device.Transport, led int) error {
	for _, color := range []wire.Color{wire.Green, wire.Red} {
		if err := setLed(t, led, color, wire.Off); err != nil {
			return err
		}
	}
	return nil
}

func testBacklight(on bool, selector string) {
	t := open(selector)
	defer t.Close()

	fmt.Printf("Backlight %v...\n", on)
	if err := t.Send(wire.EncodeBacklight(on)); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Done!")
}

func setStandalone(standalone bool, selector string) {
	t := open(selector)
	defer t.Close()

	if standalone {
		fmt.Println("Handing control back to the device (standalone mode)...")
	} else {
		fmt.Println("Taking control (tethered mode)...")
	}
	for _, msg := range wire.EncodeModeSelect(standalone) {
		if err := t.Send(msg); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
	}
	fmt.Println("Done!")
}

func testStatus(selector string) {
	t := open(selector)
	defer t.Close()

	fmt.Println("Requesting status...")
	if err := t.Send(wire.EncodeStatusRequest()); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	ch := make(chan wire.StatusReport, 1)
	go func() {
		for {
			msg, err := t.Receive()
			if err != nil {
				return
			}
			rec, err := wire.Decode(msg)
			if err != nil {
				continue
			}
			if report, ok := rec.(wire.StatusReport); ok {
				ch <- report
				return
			}
		}
	}()

	select {
	case report := <-ch:
		fmt.Printf("Firmware %d.%d, model %d, %d pads\n",
			report.FirmwareMajor, report.FirmwareMinor, report.Model, report.PadCount)
	case <-time.After(3 * time.Second):
		fmt.Println("No answer. Older firmware does not implement the status query.")
	}
}

func monitor(selector string) {
	eng, err := engine.Open(engine.Options{Selector: selector})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	eng.Subscribe(engine.HandlerFunc(func(ev engine.PadEvent) {
		label := fmt.Sprintf("%d", ev.Pad)
		if ev.Pad < len(eng.Profile().Pads) {
			label = eng.Profile().Pads[ev.Pad].Label
		}
		fmt.Printf("[%s] pad %-9s %-6s %-8s %.3f\n",
			ev.Time.Format("15:04:05.000"), label, ev.Direction, ev.Type, ev.Pressure)
	}))

	fmt.Println("Monitoring pad events. Ctrl+C to exit.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
	case <-eng.Done():
		if err := eng.Err(); err != nil {
			fmt.Printf("\nSession ended: %v\n", err)
		}
	}

	eng.Close()
	stats := eng.Stats()
	fmt.Printf("\n%d frames, %d events, %d malformed\n", stats.Frames, stats.Events, stats.Malformed)
}
