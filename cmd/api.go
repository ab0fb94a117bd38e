package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/dodeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes an authorized GET request to the deck service and prints the body.
//
// The path may carry a query string, e.g. "/v1/decks?visibility=shared".
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.StringArg("path")
	if raw == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}

	path, rawQuery, _ := strings.Cut(raw, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return fmt.Errorf("%w: query: %v", shared.ErrInvalidArgument, err)
	}

	api, err := r.apiService(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("GET request", "path", path)
	resp, err := api.Get(ctx, path, query)
	if err != nil {
		return err
	}

	if !resp.OK() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
	}
	if err := r.writeBytes(resp.Body); err != nil {
		return err
	}
	return r.writeBytes([]byte("\n"))
}
