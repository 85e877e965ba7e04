package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

var (
	ErrUnsupportedFile = errors.New("only pdf and word documents are accepted")
	ErrFileTooLarge    = errors.New("file exceeds 10MB")
	ErrMissingField    = errors.New("missing field")
)

const maxUploadSize = 10 << 20

var uploadTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

type DocumentType struct {
	ID    Text   `json:"id"`
	Title string `json:"title"`
}

type Document struct {
	ID        Text   `json:"id"`
	AuctionID Text   `json:"auction_id"`
	UserID    Text   `json:"user_id"`
	FileType  string `json:"file_type"`
	URL       string `json:"url"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// auctionFiles is one entry of the my-list answer, which groups uploads by
// auction.
type auctionFiles struct {
	Files []Document `json:"files"`
}

func (c *Client) DocumentTypes(ctx context.Context) ([]DocumentType, error) {
	var out []DocumentType
	if err := c.get(ctx, "/api/file/type/list", &out); err != nil {
		return nil, err
	}
	return lo.Ternary(out == nil, []DocumentType{}, out), nil
}

// MyDocuments lists every file the current user uploaded, across auctions.
func (c *Client) MyDocuments(ctx context.Context) ([]Document, error) {
	var groups []auctionFiles
	if err := c.get(ctx, "/api/file/my-list/", &groups); err != nil {
		return nil, err
	}
	return lo.FlatMap(groups, func(g auctionFiles, _ int) []Document { return g.Files }), nil
}

func (c *Client) AuctionDocuments(ctx context.Context, auctionID string) ([]Document, error) {
	if strings.TrimSpace(auctionID) == "" {
		return nil, fmt.Errorf("%w: auction id", ErrMissingField)
	}
	var out []Document
	if err := c.get(ctx, "/api/file/auction/"+escape(auctionID)+"/files/", &out); err != nil {
		return nil, err
	}
	return lo.Ternary(out == nil, []Document{}, out), nil
}

type Upload struct {
	AuctionID string
	// FileType is the document type title, not its id.
	FileType string
	Filename string
	Content  io.Reader
}

// UploadDocument sends one pdf or word file for an auction.
func (c *Client) UploadDocument(ctx context.Context, up Upload) (Document, error) {
	if strings.TrimSpace(up.AuctionID) == "" {
		return Document{}, fmt.Errorf("%w: auction id", ErrMissingField)
	}
	if strings.TrimSpace(up.FileType) == "" {
		return Document{}, fmt.Errorf("%w: file type", ErrMissingField)
	}
	contentType, ok := uploadTypes[strings.ToLower(filepath.Ext(up.Filename))]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedFile, up.Filename)
	}

	data, err := io.ReadAll(io.LimitReader(up.Content, maxUploadSize+1))
	if err != nil {
		return Document{}, fmt.Errorf("api: read upload: %w", err)
	}
	if len(data) > maxUploadSize {
		return Document{}, ErrFileTooLarge
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(up.Filename)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return Document{}, fmt.Errorf("api: multipart: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return Document{}, fmt.Errorf("api: multipart: %w", err)
	}
	if err := w.WriteField("file_type", up.FileType); err != nil {
		return Document{}, fmt.Errorf("api: multipart: %w", err)
	}
	if err := w.WriteField("auction_id", up.AuctionID); err != nil {
		return Document{}, fmt.Errorf("api: multipart: %w", err)
	}
	if err := w.Close(); err != nil {
		return Document{}, fmt.Errorf("api: multipart: %w", err)
	}

	var doc Document
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/file/create",
		body:        &body,
		contentType: w.FormDataContentType(),
		auth:        true,
	}, &doc)
	return doc, err
}
