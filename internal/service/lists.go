package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/preview"
)

const itemLimit = 200

// ItemInput holds the fields of a new list item. The link fields are only
// kept on wishlists.
type ItemInput struct {
	Text     string
	URL      string
	ImageURL string
}

// CreateList adds a normal list or a wishlist owned by the acting user
func (s *Service) CreateList(ctx context.Context, id models.Identity, title string, listType models.ListType) (*models.List, error) {
	title, err := requireText("title", title)
	if err != nil {
		return nil, err
	}
	if listType == "" {
		listType = models.ListNormal
	}
	if !listType.Valid() {
		return nil, invalid("type", "must be normal or wishlist")
	}

	list, err := s.store.Lists().Create(ctx, &models.List{
		Family:    id.Family,
		Title:     title,
		Type:      listType,
		CreatedBy: id.User,
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"family": id.Family,
		"user":   id.User,
		"list":   list.ID,
		"type":   list.Type,
	}).Info("Created list")

	return list, nil
}

// Lists returns alive lists, optionally of one type
func (s *Service) Lists(ctx context.Context, id models.Identity, listType models.ListType) ([]*models.List, error) {
	return s.store.Lists().List(ctx, id.Family, listType)
}

// GetList returns a list by id, including soft-deleted ones
func (s *Service) GetList(ctx context.Context, id models.Identity, listID int64) (*models.List, error) {
	list, err := s.store.Lists().GetByID(ctx, id.Family, listID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, notFound("list", listID)
	}
	return list, nil
}

func (s *Service) DeleteList(ctx context.Context, id models.Identity, listID int64) error {
	if err := s.store.Lists().SoftDelete(ctx, id.Family, listID, s.now()); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"family": id.Family,
		"user":   id.User,
		"list":   listID,
	}).Info("Deleted list")
	return nil
}

// AddItem appends an item. A wishlist link without an explicit image gets
// one best-effort preview lookup; the lookup never fails the add.
func (s *Service) AddItem(ctx context.Context, id models.Identity, listID int64, in ItemInput) (*models.ListItem, error) {
	text, err := requireText("text", in.Text)
	if err != nil {
		return nil, err
	}

	list, err := s.GetList(ctx, id, listID)
	if err != nil {
		return nil, err
	}
	if list.IsDeleted() {
		return nil, notFound("list", listID)
	}

	item := &models.ListItem{ListID: listID, Text: text}
	if list.IsWishlist() {
		item.URL = strings.TrimSpace(in.URL)
		item.ImageURL = strings.TrimSpace(in.ImageURL)
		if item.URL != "" && !preview.IsWebURL(item.URL) {
			return nil, invalid("url", "enter a valid link (http/https)")
		}
		if item.ImageURL != "" && !preview.IsWebURL(item.ImageURL) {
			return nil, invalid("image_url", "enter a valid link (http/https)")
		}
		if item.URL != "" && item.ImageURL == "" {
			item.ImageURL = s.previewImage(ctx, item.URL)
		}
	}

	item, err = s.store.Lists().AddItem(ctx, id.Family, item)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"family": id.Family,
		"user":   id.User,
		"list":   listID,
		"item":   item.ID,
	}).Info("Added list item")

	return item, nil
}

func (s *Service) previewImage(ctx context.Context, link string) string {
	if preview.LooksLikeImage(link) {
		return link
	}
	if img, ok := s.preview.FetchImage(ctx, link); ok {
		return img
	}
	return ""
}

// Items returns the newest items of a list as the acting user may see them
func (s *Service) Items(ctx context.Context, id models.Identity, listID int64) ([]models.ListItem, error) {
	list, err := s.GetList(ctx, id, listID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.Lists().Items(ctx, id.Family, listID, itemLimit)
	if err != nil {
		return nil, err
	}

	visible := make([]models.ListItem, 0, len(items))
	for _, item := range items {
		visible = append(visible, item.VisibleTo(id.User, list))
	}
	return visible, nil
}

// SetItemDone toggles the done flag of an item on a normal list
func (s *Service) SetItemDone(ctx context.Context, id models.Identity, itemID int64, done bool) error {
	return s.store.Lists().SetDone(ctx, id.Family, itemID, done)
}

func (s *Service) DeleteItem(ctx context.Context, id models.Identity, itemID int64) error {
	if err := s.store.Lists().DeleteItem(ctx, id.Family, itemID); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"family": id.Family,
		"user":   id.User,
		"item":   itemID,
	}).Info("Deleted list item")
	return nil
}

// ClaimItem reserves a wishlist item for the acting user
func (s *Service) ClaimItem(ctx context.Context, id models.Identity, itemID int64) (models.ListItem, bool, error) {
	return s.transition(ctx, id, itemID, models.ActionClaim)
}

// UnclaimItem releases the acting user's own claim
func (s *Service) UnclaimItem(ctx context.Context, id models.Identity, itemID int64) (models.ListItem, bool, error) {
	return s.transition(ctx, id, itemID, models.ActionUnclaim)
}

// PurchaseItem marks the acting user's own claim as bought
func (s *Service) PurchaseItem(ctx context.Context, id models.Identity, itemID int64) (models.ListItem, bool, error) {
	return s.transition(ctx, id, itemID, models.ActionPurchase)
}

// transition applies action and returns the item as the actor now sees it.
// A transition the state machine rejects is a no-op reported as false.
func (s *Service) transition(ctx context.Context, id models.Identity, itemID int64, action models.ClaimAction) (models.ListItem, bool, error) {
	item, list, err := s.wishlistItem(ctx, id, itemID)
	if err != nil {
		return models.ListItem{}, false, err
	}

	if !item.Allows(action, id.User, list.CreatedBy) {
		return item.VisibleTo(id.User, list), false, nil
	}

	var changed bool
	switch action {
	case models.ActionClaim:
		changed, err = s.store.Lists().Claim(ctx, id.Family, itemID, id.User)
	case models.ActionUnclaim:
		changed, err = s.store.Lists().Unclaim(ctx, id.Family, itemID, id.User)
	case models.ActionPurchase:
		changed, err = s.store.Lists().Purchase(ctx, id.Family, itemID, id.User)
	}
	if err != nil {
		return models.ListItem{}, false, err
	}

	if changed {
		s.logger.WithFields(logrus.Fields{
			"family": id.Family,
			"user":   id.User,
			"item":   itemID,
			"action": action,
		}).Info("Wishlist item transition")

		if item, _, err = s.wishlistItem(ctx, id, itemID); err != nil {
			return models.ListItem{}, false, err
		}
	}

	return item.VisibleTo(id.User, list), changed, nil
}

func (s *Service) wishlistItem(ctx context.Context, id models.Identity, itemID int64) (*models.ListItem, *models.List, error) {
	item, err := s.store.Lists().GetItem(ctx, id.Family, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, notFound("list item", itemID)
	}

	list, err := s.GetList(ctx, id, item.ListID)
	if err != nil {
		return nil, nil, err
	}
	if list.IsDeleted() {
		return nil, nil, notFound("list item", itemID)
	}
	if !list.IsWishlist() {
		return nil, nil, invalid("item", "only wishlist items can be claimed")
	}
	return item, list, nil
}
