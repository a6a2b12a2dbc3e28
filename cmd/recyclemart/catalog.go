package main

import (
	"context"
	"fmt"
	"strings"

	"recyclemart/internal/domain/marketplace"
)

func runAds(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("ads")
	var q marketplace.AdQuery
	fs.StringVar(&q.Search, "q", "", "search term")
	fs.StringVar(&q.Category, "category", "", "category slug")
	fs.StringVar(&q.Location, "location", "", "location")
	fs.Float64Var(&q.MinPrice, "min", 0, "minimum price")
	fs.Float64Var(&q.MaxPrice, "max", 0, "maximum price")
	fs.StringVar(&q.Sort, "sort", "", "sort order, e.g. -createdAt or price")
	fs.IntVar(&q.Page, "page", 1, "page number")
	fs.IntVar(&q.Limit, "limit", 20, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if q.Search == "" && fs.NArg() > 0 {
		q.Search = strings.Join(fs.Args(), " ")
	}
	page, err := c.app.API.ListAds(ctx, q)
	if err != nil {
		return err
	}
	return c.printAds(page)
}

func runMyAds(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("my-ads")
	pageNo := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	if fs.NArg() == 2 && fs.Arg(0) == "delete" {
		if err := c.app.API.DeleteAd(ctx, token, fs.Arg(1)); err != nil {
			return err
		}
		c.success("ad %s deleted", fs.Arg(1))
		return nil
	}
	page, err := c.app.API.MyAds(ctx, token, *pageNo, *limit)
	if err != nil {
		return err
	}
	return c.printAds(page)
}

func (c *cli) printAds(page marketplace.AdPage) error {
	tw := c.table()
	c.header(tw, "ID", "TITLE", "PRICE", "LOCATION", "POSTED", "")
	for _, ad := range page.Items {
		tags := strings.TrimSpace(badge(ad.IsFeatured, "featured") + " " + badge(ad.IsUrgent, "urgent"))
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ad.ID, ad.Title, formatPrice(ad.Price), ad.Location, formatTime(ad.PostedAt), tags)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "page %d of %d, %d ads\n", page.Meta.Page, page.Meta.TotalPage, page.Meta.Total)
	return nil
}

func runAd(ctx context.Context, c *cli, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(c.errOut, "usage: recyclemart ad <id>")
		return errUsage
	}
	ad, err := c.app.API.GetAd(ctx, args[0])
	if err != nil {
		return err
	}
	if err := c.app.API.TrackView(ctx, ad.ID); err != nil {
		c.app.Logger.Debug("view not recorded", "ad_id", ad.ID, "error", err)
	}
	tw := c.table()
	fmt.Fprintf(tw, "title\t%s\n", ad.Title)
	fmt.Fprintf(tw, "price\t%s\n", formatPrice(ad.Price))
	fmt.Fprintf(tw, "location\t%s\n", ad.Location)
	fmt.Fprintf(tw, "category\t%s\n", ad.Category)
	fmt.Fprintf(tw, "posted\t%s\n", formatTime(ad.PostedAt))
	fmt.Fprintf(tw, "seller\t%s\n", ad.SellerID)
	if err := tw.Flush(); err != nil {
		return err
	}
	if ad.Description != "" {
		fmt.Fprintf(c.out, "\n%s\n", ad.Description)
	}
	if ad.SellerID != "" {
		fmt.Fprintf(c.out, "\nchat: recyclemart chat '/chat?adId=%s&participantId=%s'\n", ad.ID, ad.SellerID)
	}
	return nil
}

func runReport(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("report")
	reason := fs.String("reason", "", "why the ad is reported")
	details := fs.String("details", "", "extra details")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || strings.TrimSpace(*reason) == "" {
		fmt.Fprintln(c.errOut, "usage: recyclemart report -reason <text> [-details <text>] <adId>")
		return errUsage
	}
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	if err := c.app.API.ReportAd(ctx, token, fs.Arg(0), marketplace.Report{Reason: *reason, Details: *details}); err != nil {
		return err
	}
	c.success("ad reported")
	return nil
}

func runCategories(ctx context.Context, c *cli, _ []string) error {
	cats, err := c.app.API.Categories(ctx)
	if err != nil {
		return err
	}
	tw := c.table()
	c.header(tw, "SLUG", "NAME")
	for _, cat := range cats {
		if !cat.IsActive {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", cat.Slug, cat.Name)
	}
	return tw.Flush()
}

func runFavorites(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("favorites")
	pageNo := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	page, err := c.app.API.Favorites(ctx, token, *pageNo, *limit)
	if err != nil {
		return err
	}
	tw := c.table()
	c.header(tw, "AD", "TITLE", "PRICE", "LOCATION", "POSTED")
	for _, f := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.AdID, f.Title, formatPrice(f.Price), f.Location, formatTime(f.PostedAt))
	}
	return tw.Flush()
}

func runFavorite(ctx context.Context, c *cli, args []string) error {
	if len(args) != 2 || (args[0] != "add" && args[0] != "remove") {
		fmt.Fprintln(c.errOut, "usage: recyclemart favorite add|remove <adId>")
		return errUsage
	}
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	if args[0] == "add" {
		err = c.app.API.AddFavorite(ctx, token, args[1])
	} else {
		err = c.app.API.RemoveFavorite(ctx, token, args[1])
	}
	if err != nil {
		return err
	}
	c.success("favorites updated")
	return nil
}
