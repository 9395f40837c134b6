package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/service"
	"github.com/Kerhoff/hive/internal/telegram"
)

// ---------------------------------------------------------------------------
// WishListHandler – /wishlist [id]
// ---------------------------------------------------------------------------

// WishListHandler handles the /wishlist command.
//
// Without arguments it shows the family's wishlists. With a list id it shows
// that list's items. Claim status is hidden from the list's creator so that
// surprises are not spoiled; other viewers see who claimed or bought what.
type WishListHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewWishListHandler creates a new WishListHandler.
func NewWishListHandler(svc *service.Service, logger *logrus.Logger) *WishListHandler {
	return &WishListHandler{svc: svc, logger: logger}
}

// Handle processes the /wishlist command.
func (h *WishListHandler) Handle(ctx context.Context, req telegram.Request) (string, error) {
	id, err := identityFor(ctx, h.svc, req)
	if err != nil {
		return "", err
	}

	if len(req.Args) == 0 {
		lists, err := h.svc.Lists(ctx, id, models.ListWishlist)
		if err != nil {
			return "", err
		}
		if len(lists) == 0 {
			return "🎁 No wishlists yet.", nil
		}
		var sb strings.Builder
		sb.WriteString("🎁 Wishlists:\n\n")
		for _, l := range lists {
			fmt.Fprintf(&sb, "#%d %s (by %s)\n", l.ID, l.Title, l.CreatedBy)
		}
		sb.WriteString("\nShow one with /wishlist <id>")
		return sb.String(), nil
	}

	listID, ok := parseID(req.Args[0])
	if !ok {
		return "❌ Invalid list ID", nil
	}

	list, err := h.svc.GetList(ctx, id, listID)
	if err != nil {
		return userMessage(err)
	}
	if !list.IsWishlist() {
		return fmt.Sprintf("❌ List #%d is not a wishlist", list.ID), nil
	}

	items, err := h.svc.Items(ctx, id, listID)
	if err != nil {
		return userMessage(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🎁 %s\n\n", list.Title)
	if len(items) == 0 {
		sb.WriteString("No items yet.")
	}
	for _, item := range items {
		fmt.Fprintf(&sb, "#%d %s", item.ID, item.Text)
		switch {
		case item.PurchasedBy != "":
			fmt.Fprintf(&sb, " ✅ bought by %s", item.PurchasedBy)
		case item.ClaimedBy != "":
			fmt.Fprintf(&sb, " 🔒 claimed by %s", item.ClaimedBy)
		}
		if item.URL != "" {
			fmt.Fprintf(&sb, "\n   🔗 %s", item.URL)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// ---------------------------------------------------------------------------
// ClaimHandler – /claim <item id>
// ---------------------------------------------------------------------------

// ClaimHandler handles the /claim command.
type ClaimHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewClaimHandler creates a new ClaimHandler.
func NewClaimHandler(svc *service.Service, logger *logrus.Logger) *ClaimHandler {
	return &ClaimHandler{svc: svc, logger: logger}
}

// Handle processes the /claim command.
func (h *ClaimHandler) Handle(ctx context.Context, req telegram.Request) (string, error) {
	if len(req.Args) == 0 {
		return "Usage: /claim <item id>", nil
	}
	itemID, ok := parseID(req.Args[0])
	if !ok {
		return "❌ Invalid item ID", nil
	}

	id, err := identityFor(ctx, h.svc, req)
	if err != nil {
		return "", err
	}

	item, changed, err := h.svc.ClaimItem(ctx, id, itemID)
	if err != nil {
		return userMessage(err)
	}
	if !changed {
		return fmt.Sprintf("⚠️ %s can't be claimed right now", item.Text), nil
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": req.ChatID,
		"family":  id.Family,
		"item":    itemID,
	}).Info("Item claimed from Telegram")

	return fmt.Sprintf("🔒 You claimed %s", item.Text), nil
}
