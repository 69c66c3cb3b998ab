package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"watchturret/internal/app"
	"watchturret/internal/config"

	"gocv.io/x/gocv"
)

func main() {
	cfg := config.Load()

	mode := flag.String("mode", cfg.Mode, "Detection mode: motion, upperbody or upperbody-face")
	device := flag.String("device", cfg.CaptureDevice, "Capture device id, video file or stream URL")
	imagePath := flag.String("image", "", "Annotate a single image instead of reading the capture device")
	outPath := flag.String("out", "", "Where to write the annotated image (with -image)")
	show := flag.Bool("show", cfg.ShowWindow, "Show a preview window (press q to quit)")
	listModes := flag.Bool("modes", false, "List detection modes and exit")
	flag.Parse()

	if *listModes {
		for _, m := range []string{config.ModeMotion, config.ModeUpperBody, config.ModeUpperBodyFace} {
			fmt.Printf("%-16s %s\n", m, config.ModeDescriptions[m])
		}
		return
	}

	cfg.Mode = *mode
	cfg.CaptureDevice = *device
	cfg.ShowWindow = *show

	if *imagePath != "" {
		annotate(cfg, *imagePath, *outPath)
		return
	}

	capture, err := gocv.OpenVideoCapture(cfg.CaptureDevice)
	if err != nil {
		log.Fatalf("Failed to open capture device %s: %v", cfg.CaptureDevice, err)
	}

	application, err := app.NewApp(cfg, capture)
	if err != nil {
		capture.Close()
		log.Fatalf("Failed to start: %v", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Printf("Turret stopped: %v", err)
	}
}

func annotate(cfg *config.Config, in, out string) {
	cfg.ShowWindow = false

	application, err := app.NewApp(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer application.Close()

	found, err := application.Annotate(in, out)
	if err != nil {
		log.Printf("Failed to annotate %s: %v", in, err)
		return
	}
	fmt.Printf("%s: found=%t\n", in, found)
}
