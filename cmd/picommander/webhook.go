package main

import (
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
)

func newWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the Telegram webhook registration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Register <webhook_url>/webhook with Telegram",
		RunE: func(cmd *cobra.Command, args []string) error {
			return manageWebhook(true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Deregister the webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return manageWebhook(false)
		},
	})
	return cmd
}

func manageWebhook(set bool) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return err
	}

	if !set {
		if _, err := api.MakeRequest("deleteWebhook", tgbotapi.Params{}); err != nil {
			return err
		}
		log.Info("webhook deleted")
		return nil
	}

	if cfg.WebhookURL == "" {
		return errors.New("webhook_url must be configured to register a webhook")
	}

	url := cfg.WebhookURL + "/webhook"
	params := tgbotapi.Params{"url": url}
	params.AddBool("drop_pending_updates", true)
	params.AddNonEmpty("secret_token", cfg.SecretToken)

	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		return err
	}
	log.Info("webhook registered", "url", url)
	return nil
}
