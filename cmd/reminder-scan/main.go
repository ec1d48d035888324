// Command reminder-scan runs the reminder sweeps from cron. With no -kinds
// it runs every kind in order.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"publication-portal-api/config"
	"publication-portal-api/services"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config.InitDB()
	config.InitRedis()
	defer config.CloseRedis()
	config.InitKafka()
	defer config.CloseKafka()

	var kindsRaw string
	flag.StringVar(&kindsRaw, "kinds", "", "comma-separated reminder kinds to run (default: all)")
	flag.Parse()

	var kinds []services.ReminderKind
	if strings.TrimSpace(kindsRaw) == "" {
		kinds = []services.ReminderKind{
			services.ReminderStaleSubmissions,
			services.ReminderOverdueTasks,
			services.ReminderStaleTasks,
			services.ReminderLowResponseMeetings,
		}
	} else {
		for _, part := range strings.Split(kindsRaw, ",") {
			kind, ok := services.ParseReminderKind(strings.TrimSpace(part))
			if !ok {
				log.Fatalf("unknown reminder kind '%s'", part)
			}
			kinds = append(kinds, kind)
		}
	}

	svc := services.NewReminderService(config.DB, services.NewNotifier(config.DB))

	failed := false
	for _, kind := range kinds {
		sent, err := svc.Scan(context.Background(), kind)
		if err != nil {
			log.Printf("scan %s failed: %v", kind, err)
			failed = true
			continue
		}
		fmt.Printf("%s: %d reminders sent\n", kind, sent)
	}

	if failed {
		os.Exit(2)
	}
}
