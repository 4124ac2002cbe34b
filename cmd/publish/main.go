// Command publish seeds a user's location and interest tags if asked, then
// publishes an interest post through the API. Pair it with cmd/listen to
// watch the fanout land on nearby matching users.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/calebwray/interest-radar/internal/apiclient"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr        = flag.String("addr", "http://localhost:3000", "API base URL")
		userID      = flag.String("user", "", "publishing user id (required)")
		userName    = flag.String("name", "", "publishing user display name")
		title       = flag.String("title", "", "post title (required)")
		description = flag.String("desc", "", "post description")
		tags        = flag.String("tags", "", "comma-separated post tags")
		lng         = flag.Float64("lng", 0, "longitude to save for the user before publishing")
		lat         = flag.Float64("lat", 0, "latitude to save for the user before publishing")
		setLocation = flag.Bool("set-location", false, "save -lng/-lat as the user's location first")
	)
	flag.Parse()

	if *userID == "" || *title == "" {
		flag.Usage()
		return fmt.Errorf("-user and -title are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := apiclient.NewClient(*addr)

	if *setLocation {
		if err := client.SetUserLocation(ctx, *userID, *lng, *lat); err != nil {
			return err
		}
		fmt.Printf("saved location (%g, %g) for %s\n", *lng, *lat, *userID)
	}

	interest, err := client.PublishInterest(ctx, *userID, *userName, *title, *description, splitTags(*tags))
	if err != nil {
		return err
	}

	fmt.Printf("published interest %s (tags: %s)\n", interest.ID, strings.Join(interest.Tags, ", "))
	return nil
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
