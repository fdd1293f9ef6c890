package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"searcher/cmd"
	"searcher/config"
	"searcher/db"
	"searcher/logger"
)

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(config.ConfigPath)

	if err := viper.MergeInConfig(); err != nil {
		logger.GlobalLogger.Warn("No config.yaml found, relying on flags and environment", "err", err)
	}

	if err := godotenv.Load(config.ConfigPath + ".env"); err != nil {
		logger.GlobalLogger.Warn("No .env found, relying on flags and environment", "err", err)
	}

	viper.AutomaticEnv()
}

func initDB() {
	if viper.GetString("CLICKHOUSE_ADDR") == "" {
		return // submission history disabled
	}

	ch := db.NewClickhouse()
	defer ch.Close()

	logger.GlobalLogger.Info("Try to ensure database and tables exist")

	if err := ch.EnsureDatabaseExists(); err != nil {
		logger.GlobalLogger.Error("Failed to ensure database", "err", err)
		return
	}

	if err := ch.CreateTables(); err != nil {
		logger.GlobalLogger.Error("Failed to create tables", "err", err)
	}
}

func main() {
	initConfig()
	initDB()

	err := cmd.RootCmd.Execute()
	if err != nil {
		logger.GlobalLogger.Error("Error executing command", "err", err)
	}

	logger.CloseAll()
	if err != nil {
		os.Exit(1)
	}
}
