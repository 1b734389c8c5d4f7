package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"zerodte-api/pkg/analysis"
)

const (
	docMimeType = "application/vnd.google-apps.document"
	sinkName    = "google_docs"
)

var (
	// ErrDisabled is returned by a publisher that was not configured.
	ErrDisabled = errors.New("publisher: google docs publishing is not configured")
	// ErrNoAnalysis is returned when there is no completed result to share.
	ErrNoAnalysis = errors.New("publisher: no analysis available to share")

	entrySeparator = "\n" + strings.Repeat("-", 20) + "\n\n"
)

// Publisher writes analysis results into one Google Doc per trading day,
// creating the document on first use and appending afterwards.
type Publisher struct {
	docs        *docs.Service
	drive       *drive.Service
	titlePrefix string
	timeout     time.Duration
	location    *time.Location
	now         func() time.Time
}

// Option customises a Publisher.
type Option func(*Publisher)

// WithClock overrides the time source used for the document title.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// WithTitlePrefix sets the document title prefix.
func WithTitlePrefix(prefix string) Option {
	return func(p *Publisher) {
		if s := strings.TrimSpace(prefix); s != "" {
			p.titlePrefix = s
		}
	}
}

// WithTimeout bounds a single publish call.
func WithTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// New builds Docs and Drive clients from cfg. Extra client options are
// applied to both services.
func New(ctx context.Context, cfg *Config, clientOpts ...option.ClientOption) (*Publisher, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, ErrDisabled
	}
	opts := []option.ClientOption{option.WithScopes(docs.DocumentsScope, drive.DriveFileScope)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, clientOpts...)

	docsSvc, err := docs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("publisher: docs service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("publisher: drive service: %w", err)
	}
	return NewFromServices(docsSvc, driveSvc, WithTitlePrefix(cfg.TitlePrefix), WithTimeout(cfg.Timeout)), nil
}

// NewFromServices wraps pre-built API services.
func NewFromServices(docsSvc *docs.Service, driveSvc *drive.Service, opts ...Option) *Publisher {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	p := &Publisher{
		docs:        docsSvc,
		drive:       driveSvc,
		titlePrefix: defaultTitlePrefix,
		timeout:     defaultTimeout,
		location:    loc,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Title returns the document title for the current trading day.
func (p *Publisher) Title() string {
	return fmt.Sprintf("%s - %s", p.titlePrefix, p.now().In(p.location).Format("2006-01-02"))
}

// DocURL returns the edit URL of a document.
func DocURL(documentID string) string {
	return fmt.Sprintf("https://docs.google.com/document/d/%s/edit", documentID)
}

// Publish appends r to today's document and returns its edit URL.
func (p *Publisher) Publish(ctx context.Context, r analysis.Result) (string, error) {
	if p == nil {
		return "", ErrDisabled
	}
	if !r.Ready() || strings.TrimSpace(r.Text) == "" {
		return "", ErrNoAnalysis
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	title := p.Title()
	content := fmt.Sprintf("Analysis Time: %s\n\n%s", r.Timestamp.UTC().Format(time.RFC3339), r.Text)

	docID, err := p.findDoc(ctx, title)
	if err != nil {
		return "", err
	}

	var insert *docs.InsertTextRequest
	if docID == "" {
		doc, err := p.docs.Documents.Create(&docs.Document{Title: title}).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("publisher: create %q: %w", title, err)
		}
		docID = doc.DocumentId
		logx.WithContext(ctx).Infof("publisher: created document %s (%s)", docID, title)
		insert = &docs.InsertTextRequest{
			Location: &docs.Location{Index: 1},
			Text:     content + "\n\n",
		}
	} else {
		end, err := p.endIndex(ctx, docID)
		if err != nil {
			return "", err
		}
		insert = &docs.InsertTextRequest{
			Location: &docs.Location{Index: end - 1},
			Text:     entrySeparator + content + "\n",
		}
	}

	_, err = p.docs.Documents.BatchUpdate(docID, &docs.BatchUpdateDocumentRequest{
		Requests: []*docs.Request{{InsertText: insert}},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("publisher: update %s: %w", docID, err)
	}
	return DocURL(docID), nil
}

// Name implements analysis.Sink.
func (p *Publisher) Name() string {
	return sinkName
}

// Save implements analysis.Sink.
func (p *Publisher) Save(ctx context.Context, r analysis.Result) error {
	_, err := p.Publish(ctx, r)
	return err
}

func (p *Publisher) findDoc(ctx context.Context, title string) (string, error) {
	query := fmt.Sprintf("name = '%s' and trashed = false and mimeType = '%s'", escapeQuery(title), docMimeType)
	list, err := p.drive.Files.List().Q(query).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("publisher: search %q: %w", title, err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func (p *Publisher) endIndex(ctx context.Context, docID string) (int64, error) {
	doc, err := p.docs.Documents.Get(docID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("publisher: get %s: %w", docID, err)
	}
	if doc.Body == nil || len(doc.Body.Content) == 0 {
		return 2, nil
	}
	end := doc.Body.Content[len(doc.Body.Content)-1].EndIndex
	if end < 2 {
		end = 2
	}
	return end, nil
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
