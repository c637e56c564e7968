package database

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// BunPresentation represents the presentations table for Bun ORM
type BunPresentation struct {
	bun.BaseModel `bun:"table:presentations,alias:p"`

	ID          int       `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull"`
	Path        string    `bun:"path,notnull,unique"`
	ImportTime  time.Time `bun:"import_time,notnull,default:current_timestamp"`
	Hash        string    `bun:"hash,notnull"`
	ULID        string    `bun:"ulid,notnull,unique"` // Stored as string in DB
	PageCount   int       `bun:"page_count,notnull,default:0"`
	Flexible    bool      `bun:"flexible,notnull,default:false"`
	CurrentPage int       `bun:"current_page,notnull,default:0"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// ToPresentation converts BunPresentation to Presentation
func (bp *BunPresentation) ToPresentation() (*Presentation, error) {
	parsedULID, err := ulid.Parse(bp.ULID)
	if err != nil {
		return nil, err
	}

	return &Presentation{
		ID:          bp.ID,
		Name:        bp.Name,
		Path:        bp.Path,
		ImportTime:  bp.ImportTime,
		Hash:        bp.Hash,
		ULID:        parsedULID,
		PageCount:   bp.PageCount,
		Flexible:    bp.Flexible,
		CurrentPage: bp.CurrentPage,
	}, nil
}

// FromPresentation converts Presentation to BunPresentation
func FromPresentation(pres *Presentation) *BunPresentation {
	return &BunPresentation{
		ID:          pres.ID,
		Name:        pres.Name,
		Path:        pres.Path,
		ImportTime:  pres.ImportTime,
		Hash:        pres.Hash,
		ULID:        pres.ULID.String(),
		PageCount:   pres.PageCount,
		Flexible:    pres.Flexible,
		CurrentPage: pres.CurrentPage,
	}
}

// BunSlideNote represents the slide_notes table for Bun ORM
type BunSlideNote struct {
	bun.BaseModel `bun:"table:slide_notes,alias:sn"`

	ID               int       `bun:"id,pk,autoincrement"`
	PresentationULID string    `bun:"presentation_ulid,notnull"`
	Page             int       `bun:"page,notnull"`
	Text             string    `bun:"text,nullzero"`
	TextSearch       string    `bun:"text_search,type:tsvector,nullzero"` // PostgreSQL-specific
	CreatedAt        time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt        time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// ToSlideNote converts BunSlideNote to SlideNote
func (bsn *BunSlideNote) ToSlideNote() *SlideNote {
	return &SlideNote{
		ID:               bsn.ID,
		PresentationULID: bsn.PresentationULID,
		Page:             bsn.Page,
		Text:             bsn.Text,
	}
}

// FromSlideNote converts SlideNote to BunSlideNote
func FromSlideNote(note *SlideNote) *BunSlideNote {
	return &BunSlideNote{
		ID:               note.ID,
		PresentationULID: note.PresentationULID,
		Page:             note.Page,
		Text:             note.Text,
	}
}

// BunServerConfig represents the server_config table for Bun ORM
type BunServerConfig struct {
	bun.BaseModel `bun:"table:server_config,alias:sc"`

	ID               int       `bun:"id,pk"`
	ListenAddrIP     string    `bun:"listen_addr_ip,default:''"`
	ListenAddrPort   string    `bun:"listen_addr_port,notnull,default:'8000'"`
	PresentationPath string    `bun:"presentation_path,notnull,default:''"`
	Renderer         string    `bun:"renderer,notnull,default:'fitz'"`
	NotesPosition    string    `bun:"notes_position,notnull,default:'none'"`
	CacheMaxMB       int       `bun:"cache_max_mb,notnull,default:200"`
	CacheMaxPages    int       `bun:"cache_max_pages,notnull,default:-1"`
	RenderThreads    int       `bun:"render_threads,notnull,default:1"`
	ImportInterval   int       `bun:"import_interval,notnull,default:60"`
	WebUIPass        bool      `bun:"web_ui_pass,notnull,default:false"`
	ClientUsername   string    `bun:"client_username,default:''"`
	ClientPassword   string    `bun:"client_password,default:''"`
	UseReverseProxy  bool      `bun:"use_reverse_proxy,notnull,default:false"`
	BaseURL          string    `bun:"base_url,default:''"`
	ServerAPIURL     string    `bun:"server_api_url,default:''"`
	CreatedAt        time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt        time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// BunJob represents the jobs table for Bun ORM
type BunJob struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID          string     `bun:"id,pk"` // ULID as string
	Type        string     `bun:"type,notnull"`
	Status      string     `bun:"status,default:'pending'"`
	Progress    int        `bun:"progress,default:0"`
	CurrentStep string     `bun:"current_step,default:''"`
	TotalSteps  int        `bun:"total_steps,default:0"`
	Message     string     `bun:"message,default:''"`
	Error       string     `bun:"error,nullzero"`
	Result      string     `bun:"result,nullzero"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	StartedAt   *time.Time `bun:"started_at,nullzero"`
	CompletedAt *time.Time `bun:"completed_at,nullzero"`
}

// ToJob converts BunJob to Job
func (bj *BunJob) ToJob() (*Job, error) {
	parsedULID, err := ulid.Parse(bj.ID)
	if err != nil {
		return nil, err
	}

	return &Job{
		ID:          parsedULID,
		Type:        JobType(bj.Type),
		Status:      JobStatus(bj.Status),
		Progress:    bj.Progress,
		CurrentStep: bj.CurrentStep,
		TotalSteps:  bj.TotalSteps,
		Message:     bj.Message,
		Error:       bj.Error,
		Result:      bj.Result,
		CreatedAt:   bj.CreatedAt,
		UpdatedAt:   bj.UpdatedAt,
		StartedAt:   bj.StartedAt,
		CompletedAt: bj.CompletedAt,
	}, nil
}

// FromJob converts Job to BunJob
func FromJob(job *Job) *BunJob {
	return &BunJob{
		ID:          job.ID.String(),
		Type:        string(job.Type),
		Status:      string(job.Status),
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		TotalSteps:  job.TotalSteps,
		Message:     job.Message,
		Error:       job.Error,
		Result:      job.Result,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
}
