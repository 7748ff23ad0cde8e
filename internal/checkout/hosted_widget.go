package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
)

var checkoutPage = template.Must(template.New("checkout").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Checkout</title></head>
<body>
<p id="status">Opening payment window&hellip;</p>
<script src="{{.ScriptURL}}"></script>
<script>
function report(path, body) {
  fetch(path, {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(body)})
    .then(function () { document.getElementById("status").textContent = "You can close this window."; });
}
var options = {{.Options}};
options.handler = function (resp) { report({{.ResultPath}}, resp); };
options.modal = {ondismiss: function () { report({{.DismissPath}}, {}); }};
new Razorpay(options).open();
</script>
</body>
</html>
`))

type pageData struct {
	ScriptURL   string
	Options     WidgetConfig
	ResultPath  string
	DismissPath string
}

// HostedWidget serves a one-shot local page that loads the vendor checkout
// script and posts the handler or dismiss callback back to this process.
type HostedWidget struct {
	Addr      string
	ScriptURL string
	// Wait bounds how long the page may stay open; expiry counts as a dismissal.
	Wait time.Duration
	// OnReady receives the page URL once the listener is up.
	OnReady func(url string)
	Log     *slog.Logger
}

func (w *HostedWidget) Open(ctx context.Context, cfg WidgetConfig) (<-chan WidgetResult, error) {
	log := w.Log
	if log == nil {
		log = slog.Default()
	}

	ln, err := net.Listen("tcp", w.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", w.Addr, err)
	}

	nonce := uuid.NewString()
	base := "/checkout/" + nonce
	results := make(chan WidgetResult, 1)
	var once sync.Once
	complete := func(r WidgetResult) { once.Do(func() { results <- r }) }

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET(base, func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		err := checkoutPage.Execute(c.Writer, pageData{
			ScriptURL:   w.ScriptURL,
			Options:     cfg,
			ResultPath:  base + "/result",
			DismissPath: base + "/dismiss",
		})
		if err != nil {
			log.Error("render checkout page", logging.Err(err))
		}
	})
	engine.POST(base+"/result", func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil || !json.Valid(raw) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment result"})
			return
		}
		complete(WidgetResult{Payload: json.RawMessage(raw)})
		c.Status(http.StatusNoContent)
	})
	engine.POST(base+"/dismiss", func(c *gin.Context) {
		complete(WidgetResult{Dismissed: true})
		c.Status(http.StatusNoContent)
	})

	srv := &http.Server{Handler: engine, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("checkout page server stopped", logging.Err(err))
		}
	}()

	pageURL := "http://" + ln.Addr().String() + base
	log.Info("checkout page ready", slog.String("url", pageURL), slog.String("order_id", cfg.OrderID))
	if w.OnReady != nil {
		w.OnReady(pageURL)
	}

	out := make(chan WidgetResult, 1)
	go func() {
		var expire <-chan time.Time
		if w.Wait > 0 {
			t := time.NewTimer(w.Wait)
			defer t.Stop()
			expire = t.C
		}

		var res WidgetResult
		select {
		case res = <-results:
		case <-ctx.Done():
			res = WidgetResult{Dismissed: true}
		case <-expire:
			log.Warn("checkout page expired", slog.String("order_id", cfg.OrderID))
			res = WidgetResult{Dismissed: true}
		}
		out <- res

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return out, nil
}
