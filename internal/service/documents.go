package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/models"
)

// CreateDocument adds an empty document with the given title
func (s *Service) CreateDocument(ctx context.Context, id models.Identity, title string) (*models.Document, error) {
	title, err := requireText("title", title)
	if err != nil {
		return nil, err
	}

	doc, err := s.store.Documents().Create(ctx, &models.Document{
		Family: id.Family,
		Title:  title,
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"family":   id.Family,
		"user":     id.User,
		"document": doc.ID,
	}).Info("Created document")

	return doc, nil
}

func (s *Service) Documents(ctx context.Context, id models.Identity) ([]*models.Document, error) {
	return s.store.Documents().List(ctx, id.Family)
}

// GetDocument returns a document by id, including soft-deleted ones
func (s *Service) GetDocument(ctx context.Context, id models.Identity, docID int64) (*models.Document, error) {
	doc, err := s.store.Documents().GetByID(ctx, id.Family, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, notFound("document", docID)
	}
	return doc, nil
}

// UpdateDocument replaces title and content of an alive document
func (s *Service) UpdateDocument(ctx context.Context, id models.Identity, docID int64, title, content string) (*models.Document, error) {
	title, err := requireText("title", title)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{ID: docID, Family: id.Family, Title: title, Content: content}
	if err := s.store.Documents().Update(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"family":   id.Family,
		"user":     id.User,
		"document": docID,
	}).Info("Updated document")

	return doc, nil
}

func (s *Service) DeleteDocument(ctx context.Context, id models.Identity, docID int64) error {
	if err := s.store.Documents().SoftDelete(ctx, id.Family, docID, s.now()); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"family":   id.Family,
		"user":     id.User,
		"document": docID,
	}).Info("Deleted document")
	return nil
}
