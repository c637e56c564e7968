package database

import (
	"crypto/md5"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/drummonds/goPresent/config"
	"github.com/oklog/ulid/v2"
)

// Presentation is all of the presentation information stored in the database
type Presentation struct {
	ID          int
	Name        string
	Path        string // full path to the pdf file
	ImportTime  time.Time
	Hash        string
	ULID        ulid.ULID // Have a smaller (than hash) id that can be used in URL's, hopefully speed things up
	PageCount   int
	Flexible    bool // true when pages in the document have differing sizes
	CurrentPage int  // last page shown, so a reload resumes where the talk stopped
}

// SlideNote holds the text extracted from one page of a presentation
type SlideNote struct {
	ID               int
	PresentationULID string
	Page             int
	Text             string
}

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Repository defines database operations
type Repository interface {
	Close() error
	SavePresentation(pres *Presentation) error
	GetPresentationByID(id int) (*Presentation, error)
	GetPresentationByULID(ulid string) (*Presentation, error)
	GetPresentationByPath(path string) (*Presentation, error)
	GetPresentationByHash(hash string) (*Presentation, error)
	GetNewestPresentations(limit int) ([]Presentation, error)
	GetAllPresentations() ([]Presentation, error)
	DeletePresentation(ulid string) error
	UpdateCurrentPage(ulid string, page int) error
	SaveConfig(config *config.ServerConfig) error
	GetConfig() (*config.ServerConfig, error)
	// Slide note methods
	SaveSlideNotes(notes []SlideNote) error
	GetSlideNotes(presentationULID string) ([]SlideNote, error)
	GetSlideNote(presentationULID string, page int) (*SlideNote, error)
	SearchNotes(searchTerm string) ([]SlideNote, error)
	ReindexSearchNotes() (int, error)
	// Job tracking methods
	CreateJob(jobType JobType, message string) (*Job, error)
	UpdateJobProgress(jobID ulid.ULID, progress int, currentStep string) error
	UpdateJobStatus(jobID ulid.ULID, status JobStatus, message string) error
	UpdateJobError(jobID ulid.ULID, errorMsg string) error
	CompleteJob(jobID ulid.ULID, result string) error
	GetJob(jobID ulid.ULID) (*Job, error)
	GetRecentJobs(limit, offset int) ([]Job, error)
	GetActiveJobs() ([]Job, error)
	DeleteOldJobs(olderThan time.Duration) (int, error)
}

// FetchConfigFromDB pulls the server config from the database
func FetchConfigFromDB(db Repository) (config.ServerConfig, error) {
	serverConfig, err := db.GetConfig()
	if err != nil {
		Logger.Error("Unable to fetch server config from db", "error", err)
		return config.ServerConfig{}, err
	}
	return *serverConfig, nil
}

// WriteConfigToDB writes the serverconfig to the database for later retrieval
func WriteConfigToDB(serverConfig config.ServerConfig, db Repository) {
	err := db.SaveConfig(&serverConfig)
	if err != nil {
		Logger.Error("Unable to write server config to database", "error", err)
	}
}

// AddNewPresentation adds a new presentation to the database
func AddNewPresentation(filePath string, pageCount int, flexible bool, db Repository) (*Presentation, error) {
	var newPresentation Presentation
	fileHash, err := calculateHash(filePath)
	if err != nil {
		return nil, err
	}
	duplicate := checkDuplicatePresentation(fileHash, filePath, db)
	if duplicate {
		err = errors.New("Duplicate presentation found on import (Hash collision) ! " + filePath)
		Logger.Error("Duplicate presentation detected", "error", err)
		return nil, err
	}
	newTime := time.Now()
	newULID, err := CalculateUUID(newTime)
	if err != nil {
		Logger.Error("Cannot generate ULID", "filePath", filePath, "error", err)
	}

	newPresentation.Name = filepath.Base(filePath)
	newPresentation.Path = filepath.ToSlash(filePath)
	newPresentation.Hash = fileHash
	newPresentation.ImportTime = newTime
	newPresentation.ULID = newULID
	newPresentation.PageCount = pageCount
	newPresentation.Flexible = flexible
	err = db.SavePresentation(&newPresentation)
	if err != nil {
		Logger.Error("Unable to write presentation to database", "error", err)
		return nil, err
	}
	return &newPresentation, nil
}

// FetchNewestPresentations fetches the presentations that were imported last
func FetchNewestPresentations(numberOf int, db Repository) ([]Presentation, error) {
	newestPresentations, err := db.GetNewestPresentations(numberOf)
	if err != nil {
		Logger.Error("Unable to find the latest presentations", "error", err)
		return newestPresentations, err
	}
	return newestPresentations, nil
}

// FetchAllPresentations fetches all the presentations in the database
func FetchAllPresentations(db Repository) (*[]Presentation, error) {
	allPresentations, err := db.GetAllPresentations()
	if err != nil {
		Logger.Error("Unable to list presentations", "error", err)
		return nil, err
	}
	return &allPresentations, nil
}

// FetchPresentation fetches the requested presentation by ULID
func FetchPresentation(presULIDSt string, db Repository) (Presentation, int, error) {
	foundPresentation, err := db.GetPresentationByULID(presULIDSt)
	if err != nil {
		if err == sql.ErrNoRows {
			Logger.Error("Unable to find the requested presentation", "error", err)
			return Presentation{}, http.StatusNotFound, err
		}
		Logger.Error("Database error fetching presentation", "error", err)
		return Presentation{}, http.StatusInternalServerError, err
	}
	return *foundPresentation, http.StatusOK, nil
}

// FetchPresentationFromPath fetches the presentation by file path
func FetchPresentationFromPath(path string, db Repository) (Presentation, error) {
	path = filepath.ToSlash(path) // converting to slash before search
	foundPresentation, err := db.GetPresentationByPath(path)
	if err != nil {
		Logger.Error("Unable to find the requested presentation from path", "path", path, "error", err)
		return Presentation{}, err
	}
	return *foundPresentation, nil
}

// DeletePresentation removes the requested presentation by ULID
func DeletePresentation(presULIDSt string, db Repository) error {
	err := db.DeletePresentation(presULIDSt)
	if err != nil {
		Logger.Error("Unable to delete requested presentation", "error", err)
		return err
	}
	return nil
}

// RecordCurrentPage persists the page being shown so a restart resumes there
func RecordCurrentPage(presULIDSt string, page int, db Repository) error {
	err := db.UpdateCurrentPage(presULIDSt, page)
	if err != nil {
		Logger.Error("Unable to record current page", "ulid", presULIDSt, "page", page, "error", err)
		return err
	}
	return nil
}

func checkDuplicatePresentation(fileHash string, fileName string, db Repository) bool {
	presentation, err := db.GetPresentationByHash(fileHash)
	if err != nil || presentation == nil {
		Logger.Info("No record found, assume no duplicate hash", "error", err)
		return false
	}
	Logger.Info("Duplicate presentation found on import (Hash collision)", "fileName", fileName, "existingPresentation", presentation.Name)
	return true
}

// calculate the hash of the incoming file
func calculateHash(fileName string) (string, error) {
	var fileHash string
	file, err := os.Open(fileName)
	if err != nil {
		return fileHash, err
	}
	defer file.Close()
	hash := md5.New()
	_, err = io.Copy(hash, file)
	if err != nil {
		return fileHash, err
	}
	fileHash = fmt.Sprintf("%x", hash.Sum(nil))
	return fileHash, nil
}

// CalculateUUID for the incoming file
func CalculateUUID(time time.Time) (ulid.ULID, error) {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.UnixNano())), 0)
	newULID, err := ulid.New(ulid.Timestamp(time), entropy)
	if err != nil {
		return newULID, err
	}
	return newULID, nil
}
