package main

import (
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/joho/godotenv"
)

func printBanner() {
	figure1 := figure.NewFigure("S2", "isometric1", true)
	figure2 := figure.NewFigure("Classify", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

func main() {
	// .env is optional; settings may come from the environment or flags.
	if err := godotenv.Load("../../.env"); err != nil {
		_ = godotenv.Load("../.env")
	}

	if err := newRootCmd().Execute(); err != nil {
		bannercolor.Red("Error: %s", err)
		os.Exit(1)
	}
}
