package events

import (
	"fmt"

	"github.com/doodlemint/doodlemint/pkg/content"
	"github.com/doodlemint/doodlemint/pkg/ledger"
)

const (
	statusTopic  = "event.status"
	galleryTopic = "event.gallery"
)

// TopicStatus carries status.Status values from the mint pipeline.
func TopicStatus() string {
	return statusTopic
}

func TopicGalleryReset() string {
	return fmt.Sprintf("%s:reset", galleryTopic)
}

func TopicGalleryItem() string {
	return fmt.Sprintf("%s:item", galleryTopic)
}

func TopicGalleryFailure() string {
	return fmt.Sprintf("%s:failure", galleryTopic)
}

// GalleryReset is published when a refresh clears the gallery.
type GalleryReset struct {
	Epoch    uint64
	Expected int
}

// TokenView is a gallery entry as shown to the user.
type TokenView struct {
	Epoch       uint64
	ID          ledger.TokenID
	Name        string
	Description string
	Image       content.Locator
}

// FetchFailure reports a gallery entry whose metadata could not be loaded.
type FetchFailure struct {
	Epoch uint64
	ID    ledger.TokenID
	Err   error
}
