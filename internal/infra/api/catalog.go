package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"recyclemart/internal/app/dto"
	"recyclemart/internal/domain/marketplace"
)

func pageMeta(m *dto.Meta) marketplace.PageMeta {
	if m == nil {
		return marketplace.PageMeta{}
	}
	return marketplace.PageMeta{Page: m.Page, Limit: m.Limit, Total: m.Total, TotalPage: m.TotalPage}
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// ListAds searches public ads.
func (c *Client) ListAds(ctx context.Context, q marketplace.AdQuery) (marketplace.AdPage, error) {
	var items []marketplace.Ad
	meta, err := c.do(ctx, request{method: http.MethodGet, path: "/ad", query: q.Values()}, &items)
	if err != nil {
		return marketplace.AdPage{}, err
	}
	return marketplace.AdPage{Items: items, Meta: pageMeta(meta)}, nil
}

func (c *Client) GetAd(ctx context.Context, id string) (marketplace.Ad, error) {
	var ad marketplace.Ad
	_, err := c.do(ctx, request{method: http.MethodGet, path: "/ad/" + url.PathEscape(id)}, &ad)
	return ad, err
}

// MyAds lists the ads posted by the signed-in vendor.
func (c *Client) MyAds(ctx context.Context, token string, page, limit int) (marketplace.AdPage, error) {
	if err := requireToken(token); err != nil {
		return marketplace.AdPage{}, err
	}
	var items []marketplace.Ad
	meta, err := c.do(ctx, request{method: http.MethodGet, path: "/ad/my", token: token, query: pageQuery(page, limit)}, &items)
	if err != nil {
		return marketplace.AdPage{}, err
	}
	return marketplace.AdPage{Items: items, Meta: pageMeta(meta)}, nil
}

func (c *Client) DeleteAd(ctx context.Context, token, id string) error {
	if err := requireToken(token); err != nil {
		return err
	}
	_, err := c.do(ctx, request{method: http.MethodDelete, path: "/ad/" + url.PathEscape(id), token: token}, nil)
	return err
}

func (c *Client) ReportAd(ctx context.Context, token, id string, report marketplace.Report) error {
	if err := requireToken(token); err != nil {
		return err
	}
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/ad/" + url.PathEscape(id) + "/report", token: token, body: report}, nil)
	return err
}

// TrackView records a view of an ad detail page.
func (c *Client) TrackView(ctx context.Context, id string) error {
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/ad/" + url.PathEscape(id) + "/view"}, nil)
	return err
}

func (c *Client) Categories(ctx context.Context) ([]marketplace.Category, error) {
	var items []marketplace.Category
	_, err := c.do(ctx, request{method: http.MethodGet, path: "/category"}, &items)
	return items, err
}

// Favorites lists the user's saved ads.
func (c *Client) Favorites(ctx context.Context, token string, page, limit int) (marketplace.FavoritePage, error) {
	if err := requireToken(token); err != nil {
		return marketplace.FavoritePage{}, err
	}
	var items []marketplace.FavoriteItem
	meta, err := c.do(ctx, request{method: http.MethodGet, path: "/favourite/my", token: token, query: pageQuery(page, limit)}, &items)
	if err != nil {
		return marketplace.FavoritePage{}, err
	}
	return marketplace.FavoritePage{Items: items, Meta: pageMeta(meta)}, nil
}

func (c *Client) AddFavorite(ctx context.Context, token, adID string) error {
	if err := requireToken(token); err != nil {
		return err
	}
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/favourite/" + url.PathEscape(adID), token: token}, nil)
	return err
}

func (c *Client) RemoveFavorite(ctx context.Context, token, adID string) error {
	if err := requireToken(token); err != nil {
		return err
	}
	_, err := c.do(ctx, request{method: http.MethodDelete, path: "/favourite/" + url.PathEscape(adID), token: token}, nil)
	return err
}
