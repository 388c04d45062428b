package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"threatgate/internal/banlist"
)

// banctl edits the durable ban store offline. It opens the badger
// directory directly, so run it only while the gateway is stopped or
// pointed at a copy.
func main() {
	dataDir := flag.String("data", "data/bans", "ban store directory")
	reason := flag.String("reason", "manual ban", "reason recorded with a new ban")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := args[0]
	kind := banlist.Kind(args[1])
	if !kind.Valid() {
		fmt.Fprintf(os.Stderr, "unknown ban kind %q (want ip, user, or token)\n", args[1])
		os.Exit(2)
	}

	durable, err := banlist.OpenBadger(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer durable.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cmd {
	case "list":
		recs, err := durable.Load(ctx, kind)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, rec := range recs {
			fmt.Printf("%s\t%s\t%s\n", rec.Value, rec.CreatedAt.Format(time.RFC3339), rec.Reason)
		}
	case "ban":
		if len(args) < 3 {
			usage()
			os.Exit(2)
		}
		rec := banlist.Record{
			Value:     banlist.Normalize(kind, args[2]),
			Reason:    *reason,
			CreatedAt: time.Now().UTC(),
		}
		if err := durable.Put(ctx, kind, rec); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "unban":
		if len(args) < 3 {
			usage()
			os.Exit(2)
		}
		if err := durable.Delete(ctx, kind, banlist.Normalize(kind, args[2])); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: banctl [flags] <command> <kind> [value]

commands:
  list  <kind>          print durable bans of the given kind
  ban   <kind> <value>  add a ban (see -reason)
  unban <kind> <value>  remove a ban

kinds: ip, user, token

flags:
`)
	flag.PrintDefaults()
}
