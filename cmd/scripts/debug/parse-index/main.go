package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/narourip/narourip/pkg/listing"
	"github.com/robinjoseph08/golib/logger"
)

func main() {
	log := logger.New()

	var opts struct {
		WorkID  string `short:"w" long:"work-id" description:"The work the page belongs to" required:"true"`
		BaseURL string `short:"b" long:"base-url" description:"The site the page was saved from" default:"http://ncode.syosetu.com"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/parse-index -w <work id> <path/to/index.html>")
		os.Exit(1)
	}

	body, err := os.ReadFile(args[0])
	if err != nil {
		log.Err(err).Fatal("read file error")
	}

	pageURL := strings.TrimRight(opts.BaseURL, "/") + "/" + opts.WorkID + "/"
	l, err := listing.Parse(opts.WorkID, pageURL, body)
	if err != nil {
		log.Err(err).Fatal("index parse error")
	}

	fmt.Printf("Title: %s\nEntries: %d\nVolumes: %d\n", l.Title, len(l.Entries), len(l.Volumes))
	for _, v := range l.Volumes {
		fmt.Printf("  volume %d %q: %s\n", v.Index, v.Title, strings.Join(v.Slugs, " "))
	}
	for _, e := range l.Entries {
		fmt.Printf("  %4d %-8s %s %s\n", e.Ordinal, e.Slug, e.UpdatedAt.Format("2006-01-02 15:04"), e.Title)
	}
}
