package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// CacheInfo prints per-region cache statistics.
func (a *App) CacheInfo(ctx context.Context) error {
	store, closeStore, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	infos, err := store.Info(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(os.Stdout, "price cache is empty")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Region\tRecords\tFrom (UTC)\tTo (UTC)\tMin EUR/MWh\tMax EUR/MWh")
	for _, info := range infos {
		fmt.Fprintf(writer, "%s\t%d\t%s\t%s\t%s\t%s\n",
			info.Region, info.Records,
			info.MinTS.UTC().Format(time.RFC3339),
			info.MaxTS.UTC().Format(time.RFC3339),
			formatDecimal(info.MinPrice, 2),
			formatDecimal(info.MaxPrice, 2),
		)
	}
	return writer.Flush()
}

// CacheClear drops cached prices. An empty region clears everything.
func (a *App) CacheClear(ctx context.Context, region string) error {
	store, closeStore, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	removed, err := store.Clear(ctx, region)
	if err != nil {
		return err
	}

	scope := region
	if scope == "" {
		scope = "all regions"
	}
	fmt.Fprintf(os.Stdout, "removed %d cached price(s) for %s\n", removed, scope)
	return nil
}
