package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mt-bench/mt-bench/bench/cache"
)

var (
	adminCachePath string // Cache file to administer
	adminCacheTask string // Restrict to one task namespace
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts and config identities",
	Run: func(cmd *cobra.Command, args []string) {
		c := cache.Open(adminCachePath, false)
		defer c.Close()

		s := c.Stats(adminCacheTask)
		if !s.Enabled {
			fmt.Println("Cache disabled or unreadable.")
			return
		}
		scope := "all tasks"
		if adminCacheTask != "" {
			scope = adminCacheTask
		}
		fmt.Printf("Cache %s (%s): %d entries\n", adminCachePath, scope, s.Count)
		if len(s.Configs) > 0 {
			fmt.Printf("Config identities: %s\n", strings.Join(s.Configs, ", "))
		}
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cache entries (whole cache, or one task with --task)",
	Run: func(cmd *cobra.Command, args []string) {
		c := cache.Open(adminCachePath, false)
		defer c.Close()

		before := c.Stats(adminCacheTask).Count
		c.Clear(adminCacheTask)
		c.Checkpoint()
		fmt.Printf("Cleared %d entries.\n", before)
	},
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&adminCachePath, "cache", "task_cache.db", "Result cache path")
	cacheCmd.PersistentFlags().StringVar(&adminCacheTask, "task", "", "Restrict to one task namespace")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
