package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bgcut/bgcut"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	modelPath := os.Getenv("BGCUT_MODEL")
	if modelPath == "" {
		modelPath = "./models/u2netp.onnx"
	}

	input := "input.jpg"
	if len(os.Args) > 1 {
		input = os.Args[1]
	}

	cfg := bgcut.DefaultConfig(modelPath)
	cfg.AutoCrop = true

	engine := bgcut.NewEngine(bgcut.U2NetP(), nil, nil)
	pipeline := bgcut.NewPipeline(engine)

	info, err := os.Stat(input)
	if err != nil {
		panic(fmt.Errorf("error reading input: %w", err))
	}

	if info.IsDir() {
		runBatch(pipeline, input, cfg)
		return
	}

	img, err := bgcut.LoadImage(input)
	if err != nil {
		panic(fmt.Errorf("error opening image: %w", err))
	}

	start := time.Now()
	out, err := pipeline.Process(img, cfg)
	if err != nil {
		panic(fmt.Errorf("error removing background: %w", err))
	}
	fmt.Printf("time for removing background: %v\n", time.Since(start))

	if err := bgcut.SaveImage(out, "output.png"); err != nil {
		panic(fmt.Errorf("error saving image: %w", err))
	}
}

func runBatch(pipeline *bgcut.Pipeline, dir string, cfg bgcut.Config) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		panic(fmt.Errorf("error listing %s: %w", dir, err))
	}

	var inputs []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			inputs = append(inputs, filepath.Join(dir, e.Name()))
		}
	}

	batch := bgcut.NewBatch(pipeline)
	result, err := batch.Execute(context.Background(), inputs, "./output", cfg, func(p bgcut.Progress) {
		fmt.Printf("\r%s %.0f%% (eta %v)   ", p.CurrentFile, p.Percentage, p.ETA.Round(time.Second))
	})
	if err != nil {
		panic(fmt.Errorf("error running batch: %w", err))
	}

	fmt.Printf("\n%d/%d succeeded in %v\n", result.Succeeded, result.Total, result.Duration)
	for _, item := range result.Items {
		if item.Err != nil {
			fmt.Printf("failed: %s: %v\n", item.Source, item.Err)
		}
	}
}
