package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"watchturret/internal/config"
	"watchturret/internal/logger"
	"watchturret/internal/service/sound"
)

func main() {
	cfg := config.Load()

	dir := flag.String("dir", cfg.SoundDirectory, "Directory with one sub-directory of .wav files per category")
	category := flag.String("category", cfg.SoundCategory, "Category to play")
	pps := flag.Float64("pps", cfg.SoundPPS, "Maximum rate-limited plays per second (0 disables the limit)")
	count := flag.Int("count", 1, "How many times to try playing")
	interval := flag.Duration("interval", time.Second, "Pause between attempts")
	limit := flag.Bool("limit", true, "Apply the plays-per-second limit")
	list := flag.Bool("list", false, "List categories and exit")
	flag.Parse()

	if *dir == "" {
		log.Fatal("No sound directory given, set -dir or SOUND_DIR")
	}

	cfg.LogDirectory = ""
	appLogger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Close()

	mixer, err := sound.NewBeepMixer(sound.DefaultSampleRate)
	if err != nil {
		log.Fatalf("Failed to open audio: %v", err)
	}

	sounds := sound.NewCategorizer(mixer, *pps, sound.WithLogger(appLogger))
	defer sounds.Close()

	if _, err := sounds.AddTree(*dir); err != nil {
		log.Fatalf("Failed to load categories: %v", err)
	}

	if *list {
		for _, name := range sounds.Categories() {
			fmt.Println(name)
		}
		return
	}

	played := 0
	for i := 0; i < *count; i++ {
		if i > 0 {
			time.Sleep(*interval)
		}
		ok, err := sounds.Play(*category, *limit)
		if err != nil {
			log.Fatalf("Failed to play %s: %v", *category, err)
		}
		if ok {
			played++
		}
	}

	fmt.Printf("Played %d of %d attempts from %s\n", played, *count, *category)
	// playback runs on the speaker goroutine
	time.Sleep(2 * time.Second)
}
