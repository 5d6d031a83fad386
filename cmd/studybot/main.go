package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vidyalinkco/studybot/internal/agent"
	"github.com/vidyalinkco/studybot/internal/bot"
	"github.com/vidyalinkco/studybot/internal/config"
	"github.com/vidyalinkco/studybot/internal/convo"
	"github.com/vidyalinkco/studybot/internal/llm"
	"github.com/vidyalinkco/studybot/internal/moderation"
	"github.com/vidyalinkco/studybot/internal/profile"
	"github.com/vidyalinkco/studybot/internal/resources"
	"github.com/vidyalinkco/studybot/internal/store"
	"github.com/vidyalinkco/studybot/internal/telegram"
	"github.com/vidyalinkco/studybot/internal/tools"
	"github.com/vidyalinkco/studybot/internal/videos"
)

var rootCmd = &cobra.Command{
	Use:   "studybot",
	Short: "studybot - Telegram study assistant for school students",
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot (moderation + agent pipeline)",
	RunE:  runBot,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one resource index sync from the file store",
	RunE:  runSync,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show studybot status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(botCmd, syncCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("API key not set. Run 'studybot onboard' or set STUDYBOT_API_KEY / OPENAI_API_KEY")
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token not set. Set TELEGRAM_BOT_TOKEN or edit %s", config.ConfigPath())
	}

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	gateway := llm.NewClient(cfg.Provider)
	history := convo.NewStore(cfg.Agent.HistoryCap)

	moderator := moderation.NewModerator(gateway, cfg.Moderation.Model)
	warnings := moderation.NewWarningStore(st, cfg.Moderation.BanThreshold)
	escalation := moderation.NewEscalation(warnings)
	profiles := profile.NewService(st)
	index := resources.NewIndex(st)

	registry := tools.NewRegistry()
	registry.Register(tools.NewNotesTool(index))
	registry.Register(tools.NewVideosTool(videos.NewYouTubeClient(cfg.Videos.APIKey, cfg.Videos.ChannelID)))
	registry.Register(tools.NewProfileTool())
	registry.Register(tools.NewListResourcesTool(index))

	ag := agent.New(gateway, registry, history, cfg.Agent)

	channel, err := telegram.NewChannel(cfg.Telegram, nil)
	if err != nil {
		return fmt.Errorf("create telegram channel: %w", err)
	}
	group := bot.NewGroupOrchestrator(channel, moderator, escalation, profiles, ag, cfg.Moderation)
	direct := bot.NewDirectMessageRouter(channel, moderator, profiles, ag, st)
	channel.SetHandler(bot.NewRouter(group, direct))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Resources.RootFolderID != "" {
		sync := resources.NewSyncService(index, resources.NewDriveClient(cfg.Resources.APIKey), cfg.Resources.RootFolderID)
		stopSync, err := sync.Schedule(cfg.Resources.SyncSchedule)
		if err != nil {
			return fmt.Errorf("schedule sync: %w", err)
		}
		defer stopSync()
	}

	if err := channel.Start(ctx); err != nil {
		return fmt.Errorf("start telegram channel: %w", err)
	}

	<-ctx.Done()
	return channel.Stop()
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Resources.RootFolderID == "" {
		return fmt.Errorf("drive root folder not set. Set STUDYBOT_DRIVE_FOLDER_ID or edit %s", config.ConfigPath())
	}

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	index := resources.NewIndex(st)
	sync := resources.NewSyncService(index, resources.NewDriveClient(cfg.Resources.APIKey), cfg.Resources.RootFolderID)
	return sync.Run(cmd.Context())
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set your OpenAI API key and Telegram token\n", cfgPath)
	fmt.Println("  2. Or set STUDYBOT_API_KEY and TELEGRAM_BOT_TOKEN environment variables")
	fmt.Println("  3. Run 'studybot bot' to start the bot")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Agent model: %s\n", cfg.Agent.Model)
	fmt.Printf("Moderation model: %s\n", cfg.Moderation.Model)
	fmt.Printf("Ban threshold: %d\n", cfg.Moderation.BanThreshold)
	fmt.Printf("API Key: %s\n", maskKey(cfg.Provider.APIKey))
	if cfg.Telegram.Token != "" {
		fmt.Println("Telegram token: set")
	} else {
		fmt.Println("Telegram token: not set")
	}
	fmt.Printf("Database: %s\n", cfg.Store.DBPath)

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		fmt.Printf("Store: error (%v)\n", err)
		return nil
	}
	defer st.Close()

	for _, table := range []string{"user_profiles", "warnings", "resource_files"} {
		var n int
		if err := st.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err == nil {
			fmt.Printf("%s: %d rows\n", table, n)
		}
	}
	return nil
}

func maskKey(key string) string {
	if key == "" {
		return "not set"
	}
	if len(key) <= 8 {
		return "set"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
