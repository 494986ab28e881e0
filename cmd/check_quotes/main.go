package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vitos/hedgefund_sim/internal/infrastructure/marketdata"
)

func main() {
	symbol := flag.String("symbol", "AAPL", "symbol to probe")
	flag.Parse()

	ctx := context.Background()

	// 1. Check Yahoo (public, no credentials)
	fmt.Println("Testing Yahoo market data...")
	yahoo := marketdata.NewYahooProvider("")

	price, err := yahoo.GetCurrentPrice(ctx, *symbol)
	if err != nil {
		fmt.Printf("❌ Failed to get price: %v\n", err)
	} else {
		fmt.Printf("✅ Current Price (%s): %.2f\n", *symbol, price)
	}

	bars, err := yahoo.GetHistory(ctx, *symbol, "5d", "1d")
	if err != nil {
		fmt.Printf("❌ Failed to get history: %v\n", err)
	} else {
		fmt.Printf("✅ History (%s, 5d/1d): %d bars, last close %.2f\n",
			*symbol, len(bars), bars[len(bars)-1].Close)
	}

	// 2. Check Alpaca (needs credentials)
	apiKey := os.Getenv("ALPACA_API_KEY")
	apiSecret := os.Getenv("ALPACA_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		fmt.Println("No ALPACA_API_KEY/ALPACA_API_SECRET set, skipping Alpaca checks")
		return
	}

	fmt.Println("Testing Alpaca market data...")
	fmt.Printf("API Key: %s...\n", apiKey[:4])
	alpaca := marketdata.NewAlpacaProvider(apiKey, apiSecret, "", "")

	price, err = alpaca.GetCurrentPrice(ctx, *symbol)
	if err != nil {
		fmt.Printf("❌ Failed to get price: %v\n", err)
	} else {
		fmt.Printf("✅ Current Price (%s): %.2f\n", *symbol, price)
	}

	open, err := alpaca.IsMarketOpen(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to get market clock: %v\n", err)
	} else {
		fmt.Printf("✅ Market open: %v\n", open)
	}
}
