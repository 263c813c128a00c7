package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/anthropics/feishu-promo-bot/feishu"
	"github.com/anthropics/feishu-promo-bot/internal/conf"
)

// send-message delivers a single branded message to a chat, useful for
// verifying credentials and the promo footer without starting the bot.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := conf.LoadFromEnv()
	if cfg.Feishu.AppID == "" || cfg.Feishu.AppSecret == "" {
		fmt.Println("Error: FEISHU_APP_ID and FEISHU_APP_SECRET must be set")
		os.Exit(1)
	}

	if len(os.Args) < 3 {
		fmt.Println("Usage: send-message <chat_id> <message>")
		os.Exit(1)
	}

	chatID := os.Args[1]
	message := os.Args[2]

	branded := fmt.Sprintf("%s\n\n🔥 Check this out: %s - %s 🚀✨", message, cfg.Bot.Name, cfg.Bot.PromoLink)

	client := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)
	if err := client.SendText(context.Background(), chatID, branded); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Message sent successfully!")
}
