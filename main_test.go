package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	config "github.com/drummonds/goPresent/config"
	database "github.com/drummonds/goPresent/database"
	engine "github.com/drummonds/goPresent/engine"
	"github.com/drummonds/goPresent/webapp"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// getBrowser finds an available browser for testing
func getBrowser() (string, error) {
	browsers := []string{"firefox", "firefox-esr", "chromium", "chromium-browser", "google-chrome", "chrome"}
	for _, browser := range browsers {
		if path, err := exec.LookPath(browser); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no suitable browser found")
}

// TestFrontendRendering tests that the frontend loads correctly using a headless browser
func TestFrontendRendering(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Set a timeout for the entire test
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use channel to detect if test completes or times out
	done := make(chan bool)
	go func() {
		runFrontendRenderingTest(t)
		done <- true
	}()

	select {
	case <-done:
		return
	case <-ctx.Done():
		t.Fatal("Test timed out after 10 seconds")
	}
}

// runFrontendRenderingTest contains the actual test logic
func runFrontendRenderingTest(t *testing.T) {

	// Check if any browser is available (Chrome, Chromium, or Firefox)
	browserPath, err := getBrowser()

	// Check for Firefox and use fallback immediately (before setting up server)
	if err == nil && (filepath.Base(browserPath) == "firefox" || filepath.Base(browserPath) == "firefox-esr") {
		// Firefox headless with chromedp is unreliable, use curl instead
		if _, curlErr := exec.LookPath("curl"); curlErr == nil {
			t.Log("Firefox detected, using curl instead for reliability")
			testWithCurl(t)
			return
		}
		t.Skip("Firefox found but curl not available, and Firefox headless is unreliable with chromedp")
	}

	if err != nil {
		// Try curl as a fallback
		if _, err := exec.LookPath("curl"); err == nil {
			t.Log("No browser found, will use curl for basic connectivity test")
			testWithCurl(t)
			return
		}
		t.Skip("No browser (Chrome, Firefox, or curl) found, skipping browser test")
	}
	t.Logf("Using browser: %s", browserPath)

	// Set up the server in a goroutine
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger)

	// Use ephemeral PostgreSQL for tests
	postgresDB, err := database.SetupPostgresDatabase("")
	if err != nil {
		t.Fatalf("Failed to setup ephemeral database: %v", err)
	}
	db := database.Repository(postgresDB)
	defer db.Close()

	database.WriteConfigToDB(serverConfig, db)

	e := echo.New()
	e.HideBanner = true // Hide Echo banner for cleaner test output
	serverHandler := engine.ServerHandler{DB: db, Echo: e, ServerConfig: serverConfig}
	serverHandler.InitializeSchedules(db)
	serverHandler.StartupChecks()
	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))

	// Add routes
	serverHandler.RegisterRoutes()
	serverHandler.AddPresentationViewRoutes()

	// Start server in background
	testPort := "8999"
	go func() {
		if err := e.Start(fmt.Sprintf("127.0.0.1:%s", testPort)); err != nil {
			t.Logf("Server stopped: %v", err)
		}
	}()

	// Give server time to start
	time.Sleep(2 * time.Second)
	defer e.Shutdown(context.Background())

	// Create headless browser context
	var opts []chromedp.ExecAllocatorOption

	// Configure browser-specific options (only Chrome/Chromium reach here due to Firefox check above)
	opts = append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(browserPath),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
	)
	t.Log("Running test with Chrome/Chromium in headless mode")

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	// Set a timeout for the browser operations
	ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Navigate to the home page and check if it renders
	var pageTitle string
	var bodyHTML string

	testURL := fmt.Sprintf("http://127.0.0.1:%s", testPort)

	err = chromedp.Run(ctx,
		chromedp.Navigate(testURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Title(&pageTitle),
		chromedp.InnerHTML("body", &bodyHTML),
	)

	if err != nil {
		t.Fatalf("Failed to load page: %v", err)
	}

	// Verify the page loaded
	if pageTitle == "" {
		t.Error("Page title is empty")
	}

	if bodyHTML == "" {
		t.Error("Body HTML is empty")
	}

	// Check that the page contains expected content
	if len(bodyHTML) < 100 {
		t.Errorf("Body HTML seems too short (%d chars), page may not have rendered properly", len(bodyHTML))
	}

	t.Logf("Frontend test passed! Page title: %s, Body length: %d chars", pageTitle, len(bodyHTML))
}

// TestRendererConfigDefault tests that the application runs with the default renderer
func TestRendererConfigDefault(t *testing.T) {
	serverConfig, logger := config.SetupServer()

	if serverConfig.ListenAddrPort == "" {
		t.Error("Server config was not loaded properly")
	}

	switch serverConfig.Renderer {
	case "", "fitz", "pdfium":
		t.Logf("Renderer configured: %q", serverConfig.Renderer)
	default:
		t.Logf("Unknown renderer configured: %q (startup checks will warn)", serverConfig.Renderer)
	}

	if logger == nil {
		t.Error("Logger should not be nil")
	}
}

// testWithCurl performs a basic connectivity test using curl
func testWithCurl(t *testing.T) {
	// Set a timeout for the test
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan bool)
	testErr := make(chan error, 1)

	go func() {
		err := runTestWithCurl(t)
		if err != nil {
			testErr <- err
		}
		done <- true
	}()

	select {
	case <-done:
		select {
		case err := <-testErr:
			t.Fatal(err)
		default:
			return
		}
	case <-ctx.Done():
		t.Fatal("Test timed out after 10 seconds")
	}
}

// runTestWithCurl contains the actual test logic
func runTestWithCurl(t *testing.T) error {
	// Set up the server
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger)

	// Use ephemeral PostgreSQL for tests
	postgresDB, err := database.SetupPostgresDatabase("")
	if err != nil {
		t.Fatalf("Failed to setup ephemeral database: %v", err)
	}
	db := database.Repository(postgresDB)
	defer db.Close()

	database.WriteConfigToDB(serverConfig, db)

	e := echo.New()
	e.HideBanner = true
	serverHandler := engine.ServerHandler{DB: db, Echo: e, ServerConfig: serverConfig}
	serverHandler.InitializeSchedules(db)
	serverHandler.StartupChecks()
	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))

	// Add routes
	serverHandler.RegisterRoutes()

	// Start server in background
	testPort := "8997"
	go func() {
		if err := e.Start(fmt.Sprintf("127.0.0.1:%s", testPort)); err != nil {
			t.Logf("Server stopped: %v", err)
		}
	}()

	// Give server time to start
	time.Sleep(2 * time.Second)
	defer e.Shutdown(context.Background())

	testURL := fmt.Sprintf("http://127.0.0.1:%s/api/presentations", testPort)

	// Use curl to fetch the page
	cmd := exec.Command("curl", "-s", "-L", testURL)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("Curl failed to fetch page: %v, output: %s", err, string(output))
	}

	outputStr := string(output)

	// Basic checks that the endpoint answered
	if len(outputStr) < 2 {
		return fmt.Errorf("Curl output too short (%d chars), endpoint may not have answered", len(outputStr))
	}

	// Check for any error indicators
	if strings.Contains(strings.ToLower(outputStr), "connection refused") {
		return fmt.Errorf("Curl output contains error indicators: %s", outputStr[:min(500, len(outputStr))])
	}

	t.Logf("Curl test passed! Successfully fetched endpoint (%d chars)", len(outputStr))
	t.Logf("First 200 chars of output: %s", outputStr[:min(200, len(outputStr))])
	return nil
}

// min returns the minimum of two integers
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// TestImportRunsAtStartup tests that the import job runs immediately at startup
func TestImportRunsAtStartup(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Set a timeout for the entire test
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Use channel to detect if test completes or times out
	done := make(chan bool)
	go func() {
		runImportStartupTest(t)
		done <- true
	}()

	select {
	case <-done:
		return
	case <-ctx.Done():
		t.Fatal("Test timed out after 15 seconds")
	}
}

// runImportStartupTest contains the actual test logic
func runImportStartupTest(t *testing.T) {

	// Create an isolated presentation folder with one deck in it
	testDir := t.TempDir()
	testPDFPath := filepath.Join(testDir, "test_presentation.pdf")
	if err := createSimpleTestPDF(testPDFPath); err != nil {
		t.Fatalf("Failed to create test PDF: %v", err)
	}

	t.Logf("Created test PDF at: %s", testPDFPath)

	// Set up the server with custom config
	serverConfig, logger := config.SetupServer()

	// Override paths for testing
	serverConfig.PresentationPath = testDir
	serverConfig.ImportInterval = 1 // 1 minute for testing

	injectGlobals(logger)

	// Use ephemeral PostgreSQL for tests
	postgresDB, err := database.SetupPostgresDatabase("")
	if err != nil {
		t.Fatalf("Failed to setup ephemeral database: %v", err)
	}
	db := database.Repository(postgresDB)
	defer db.Close()

	// Update config in database
	database.WriteConfigToDB(serverConfig, db)

	e := echo.New()
	e.HideBanner = true
	serverHandler := engine.ServerHandler{DB: db, Echo: e, ServerConfig: serverConfig}

	// Initialize schedules (this should trigger the import job at startup)
	serverHandler.InitializeSchedules(db)

	// The import runs in a goroutine, poll the database for the deck
	imported := false
	for i := 0; i < 10; i++ {
		time.Sleep(500 * time.Millisecond)
		if _, err := database.FetchPresentationFromPath(filepath.ToSlash(testPDFPath), db); err == nil {
			imported = true
			break
		}
	}

	if !imported {
		// Processing might take longer in some environments
		t.Logf("Warning: Presentation may not have been imported yet")
	} else {
		t.Log("Import job ran at startup and registered the test presentation!")
	}
}

// createSimpleTestPDF creates a minimal valid PDF file for testing
func createSimpleTestPDF(filepath string) error {
	// This is a minimal valid PDF structure
	pdfContent := `%PDF-1.4
1 0 obj
<<
/Type /Catalog
/Pages 2 0 R
>>
endobj
2 0 obj
<<
/Type /Pages
/Kids [3 0 R]
/Count 1
>>
endobj
3 0 obj
<<
/Type /Page
/Parent 2 0 R
/MediaBox [0 0 612 792]
/Contents 4 0 R
/Resources <<
/Font <<
/F1 5 0 R
>>
>>
>>
endobj
4 0 obj
<<
/Length 44
>>
stream
BT
/F1 12 Tf
100 700 Td
(Test Document) Tj
ET
endstream
endobj
5 0 obj
<<
/Type /Font
/Subtype /Type1
/BaseFont /Helvetica
>>
endobj
xref
0 6
0000000000 65535 f
0000000009 00000 n
0000000058 00000 n
0000000115 00000 n
0000000262 00000 n
0000000356 00000 n
trailer
<<
/Size 6
/Root 1 0 R
>>
startxref
444
%%EOF`

	return os.WriteFile(filepath, []byte(pdfContent), 0644)
}

// TestWasmFileValid tests that the WASM file is valid
func TestWasmFileValid(t *testing.T) {
	wasmPath := "web/app.wasm"

	// Check if file exists
	info, err := os.Stat(wasmPath)
	if err != nil {
		t.Skipf("WASM file not found at %s: %v. Run 'task build:wasm' first.", wasmPath, err)
	}

	// Check file is not empty
	if info.Size() == 0 {
		t.Fatal("WASM file is empty")
	}

	// Check magic number
	file, err := os.Open(wasmPath)
	if err != nil {
		t.Fatalf("Failed to open WASM file: %v", err)
	}
	defer file.Close()

	magicNumber := make([]byte, 4)
	_, err = file.Read(magicNumber)
	if err != nil {
		t.Fatalf("Failed to read WASM magic number: %v", err)
	}

	// WASM magic number should be: 0x00 0x61 0x73 0x6d ("\0asm")
	expectedMagic := []byte{0x00, 0x61, 0x73, 0x6d}
	if !bytes.Equal(magicNumber, expectedMagic) {
		t.Errorf("Invalid WASM magic number. Got %v, expected %v", magicNumber, expectedMagic)
		t.Errorf("This usually means the WASM file was not built correctly.")
		t.Errorf("The file appears to be: %v", string(magicNumber))
	}

	t.Logf("WASM file is valid: %s (%d bytes)", wasmPath, info.Size())
}

// TestRootEndpoint tests that the root endpoint returns a 200 OK response with WASM app
func TestRootEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Just run the test directly without goroutine/timeout wrapper
	// The test framework already has timeouts
	runRootEndpointTest(t)
}

// runRootEndpointTest contains the actual test logic
func runRootEndpointTest(t *testing.T) {
	// Set up the server
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger)

	// Use ephemeral PostgreSQL for tests
	postgresDB, err := database.SetupPostgresDatabase("")
	if err != nil {
		t.Fatalf("Failed to setup ephemeral database: %v", err)
	}
	db := database.Repository(postgresDB)
	defer db.Close()

	database.WriteConfigToDB(serverConfig, db)

	e := echo.New()
	e.HideBanner = true
	serverHandler := engine.ServerHandler{DB: db, Echo: e, ServerConfig: serverConfig}
	serverHandler.InitializeSchedules(db)
	serverHandler.StartupChecks()
	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))

	// Set up WASM app routes exactly as in main.go
	appHandler := webapp.Handler()

	e.GET("/wasm_exec.js", func(c echo.Context) error {
		return c.File("web/wasm_exec.js")
	})

	e.GET("/app.js", echo.WrapHandler(appHandler))
	e.GET("/app.css", echo.WrapHandler(appHandler))
	e.GET("/manifest.webmanifest", echo.WrapHandler(appHandler))

	e.Static("/web", "web")
	e.File("/webapp/webapp.css", "webapp/webapp.css")

	// Add API routes
	serverHandler.RegisterRoutes()

	// Serve go-app handler for all other routes (must be last)
	e.Any("/*", echo.WrapHandler(appHandler))

	// Start server in background
	testPort := "8996"
	go func() {
		if err := e.Start(fmt.Sprintf("127.0.0.1:%s", testPort)); err != nil {
			t.Logf("Server stopped: %v", err)
		}
	}()

	// Give server time to start
	time.Sleep(2 * time.Second)
	defer e.Shutdown(context.Background())

	testURL := fmt.Sprintf("http://127.0.0.1:%s/", testPort)
	t.Logf("Testing URL: %s", testURL)

	// Use curl to test the endpoint with a timeout
	cmd := exec.Command("curl", "-s", "-L", "-w", "\n%{http_code}", "--max-time", "5", testURL)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Logf("Curl error: %v, output: %s", err, string(output))
		// Don't fatal here, continue to analyze the output
	}

	outputStr := string(output)
	lines := strings.Split(strings.TrimSpace(outputStr), "\n")

	// The last line should be the HTTP status code
	if len(lines) < 1 {
		t.Fatalf("No output from curl")
	}

	statusCode := lines[len(lines)-1]
	responseBody := strings.Join(lines[:len(lines)-1], "\n")

	t.Logf("HTTP Status Code: %s", statusCode)
	t.Logf("Response length: %d chars", len(responseBody))
	t.Logf("First 200 chars: %s", responseBody[:min(200, len(responseBody))])

	// Check if we got a 200 OK
	if statusCode != "200" {
		t.Errorf("Expected status code 200, got %s", statusCode)
	}

	// Check that we got some content back
	if len(responseBody) < 10 {
		t.Errorf("Response body too short (%d chars), expected HTML content", len(responseBody))
	}

	// Check for HTML indicators
	if !strings.Contains(responseBody, "html") && !strings.Contains(responseBody, "HTML") {
		t.Logf("Warning: response may not be HTML")
	}

	// Check that the page doesn't contain the "Go is not defined" error
	if strings.Contains(responseBody, "Go is not defined") {
		t.Error("Page contains 'Go is not defined' error - WebAssembly not loading correctly")
	}

	if statusCode == "200" && len(responseBody) > 10 {
		t.Log("Root endpoint test passed!")
	}
}

// TestAboutPageWithChromedp tests the About page using a headless browser that can execute WASM
func TestAboutPageWithChromedp(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Check if a browser is available
	browsers := []string{"chromium", "chromium-browser", "google-chrome", "chrome"}
	browserFound := false
	for _, browser := range browsers {
		if _, err := exec.LookPath(browser); err == nil {
			browserFound = true
			break
		}
	}
	if !browserFound {
		t.Skip("No Chrome/Chromium browser found, skipping chromedp test")
	}

	// The WASM bundle must be built for the page to render
	if _, err := os.Stat("web/app.wasm"); err != nil {
		t.Skip("web/app.wasm not built, skipping chromedp test")
	}

	// Set up the server
	t.Log("Setting up server config...")
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger)

	// Use ephemeral PostgreSQL for tests
	t.Log("Setting up ephemeral database...")
	postgresDB, err := database.SetupPostgresDatabase("")
	if err != nil {
		t.Fatalf("Failed to setup ephemeral database: %v", err)
	}
	t.Log("Ephemeral database created successfully")
	db := database.Repository(postgresDB)
	defer db.Close()

	t.Log("Writing config to database...")
	database.WriteConfigToDB(serverConfig, db)

	t.Log("Creating Echo server...")
	e := echo.New()
	e.HideBanner = true
	t.Log("Initializing server handler...")
	serverHandler := engine.ServerHandler{DB: db, Echo: e, ServerConfig: serverConfig}

	// Skip schedule initialization since we don't need it for this test
	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))

	// Set up go-app WASM handler
	t.Log("Setting up go-app WASM handler...")
	appHandler := webapp.Handler()

	// Serve wasm_exec.js (go-app expects it here)
	e.GET("/wasm_exec.js", func(c echo.Context) error {
		return c.File("web/wasm_exec.js")
	})

	// Register go-app specific resources
	e.GET("/app.js", echo.WrapHandler(appHandler))
	e.GET("/app.css", echo.WrapHandler(appHandler))
	e.GET("/manifest.webmanifest", echo.WrapHandler(appHandler))

	// Serve static assets
	e.Static("/web", "web")
	e.File("/webapp/webapp.css", "webapp/webapp.css")

	// Add all necessary routes including /api/about
	serverHandler.RegisterRoutes()

	// Serve go-app handler for all other routes (must be last)
	e.Any("/*", echo.WrapHandler(appHandler))

	// Start server in background
	testPort := "8995" // Different port to avoid conflicts
	go func() {
		if err := e.Start(fmt.Sprintf("127.0.0.1:%s", testPort)); err != nil {
			t.Logf("Server stopped: %v", err)
		}
	}()

	// Give server time to start
	time.Sleep(2 * time.Second)
	defer e.Shutdown(context.Background())

	// Create chromedp context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Set up headless browser options
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	// Create a new browser context with custom options
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	// Create a chromedp context
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	testURL := fmt.Sprintf("http://127.0.0.1:%s/about", testPort)
	t.Logf("Navigating to %s with chromedp", testURL)

	var pageHTML string
	var pageTitle string

	// Try to navigate and get content, with better error handling
	err = chromedp.Run(taskCtx,
		chromedp.Navigate(testURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)

	if err != nil {
		t.Skipf("Chromedp failed to navigate (browser may not be compatible): %v", err)
	}

	// Give WASM time to load and execute
	t.Log("Waiting for WASM to load and render...")
	time.Sleep(8 * time.Second)

	// Get the page content
	var bodyHTML string
	err = chromedp.Run(taskCtx,
		chromedp.Title(&pageTitle),
		chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery),
		chromedp.InnerHTML("body", &bodyHTML, chromedp.ByQuery),
	)

	if err != nil {
		t.Fatalf("Failed to get page content: %v", err)
	}

	t.Logf("Page title: %s", pageTitle)
	t.Logf("Body HTML length: %d chars", len(bodyHTML))

	// Verify the page contains expected About page content
	pageLower := strings.ToLower(pageHTML)

	expectedContent := []string{
		"about gopresent",          // Page title
		"application information",  // Section heading
		"rendering configuration",  // Section heading
		"database configuration",   // Section heading
		"presentation storage",     // Section heading
		"presentation viewer",      // Description text
		"version",                  // Info field
		"database",                 // Info field
		"pdf renderer",             // Info field
		"render threads",           // Rendering info
	}

	foundContent := 0
	for _, content := range expectedContent {
		if strings.Contains(pageLower, content) {
			t.Logf("✓ Found expected content: '%s'", content)
			foundContent++
		} else {
			t.Logf("⚠ Missing expected content: '%s'", content)
		}
	}

	if foundContent < 8 {
		t.Fatalf("❌ Only found %d/%d expected content items. Page may not have rendered correctly.", foundContent, len(expectedContent))
	}

	// Verify it's NOT showing error states
	if strings.Contains(pageHTML, "Loading...") {
		t.Error("⚠ Page still showing 'Loading...' - WASM may not have fully loaded")
	}
	if strings.Contains(pageHTML, "Network error") {
		t.Error("❌ Page showing network error")
	}

	t.Logf("✓ About page chromedp test completed successfully (found %d/%d content items)", foundContent, len(expectedContent))
}
