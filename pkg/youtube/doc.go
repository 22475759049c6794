// Package youtube is a small client for the YouTube Data API v3.
//
// It resolves channel URLs in the three forms people paste
// (youtube.com/channel/<id>, youtube.com/user/<name> and youtube.com/@handle)
// to channel IDs and fetches a flattened view of a channel. Failures are
// returned as mediagate/pkg/errors values so HTTP handlers can map them
// directly:
//
//	client := youtube.NewClient(cfg.YouTube, log)
//	ch, err := client.Lookup(ctx, "https://www.youtube.com/@GoogleDevelopers")
package youtube
