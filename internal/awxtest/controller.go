// Package awxtest serves a minimal in-process AWX controller for tests.
package awxtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Call is one request received by the controller.
type Call struct {
	Method string
	Path   string
}

// Launch records the body of a job template launch.
type Launch struct {
	Template  int
	Inventory int
	ExtraVars json.RawMessage
}

type failure struct {
	status int
	body   string
}

// Controller is a fake AWX controller. Create it with NewController and
// close it with Close.
type Controller struct {
	*httptest.Server

	// Token is issued by the token endpoint and required on every other call.
	Token string

	username string
	password string

	mu          sync.Mutex
	calls       []Call
	failures    map[string]failure
	statuses    []string
	polls       int
	nextInvID   int
	nextJobID   int
	inventories map[int]inventory
	hosts       map[int][]string
	launches    []Launch
}

type inventory struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Organization int    `json:"organization"`
}

// NewController starts a controller accepting admin/secret and issuing
// token "tok-123". Jobs report "successful" unless SetStatuses is called.
func NewController() *Controller {
	c := &Controller{
		Token:       "tok-123",
		username:    "admin",
		password:    "secret",
		failures:    make(map[string]failure),
		statuses:    []string{"successful"},
		nextInvID:   10,
		nextJobID:   100,
		inventories: make(map[int]inventory),
		hosts:       make(map[int][]string),
	}
	c.Server = httptest.NewServer(c.router())
	return c
}

func (c *Controller) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(c.record)

	r.Route("/api/v2", func(r chi.Router) {
		r.Post("/tokens/", c.createToken)

		r.Group(func(r chi.Router) {
			r.Use(c.requireBearer)
			r.Post("/inventories/", c.createInventory)
			r.Post("/inventories/{id}/hosts/", c.addHost)
			r.Post("/job_templates/{id}/launch/", c.launch)
			r.Get("/jobs/{id}/", c.getJob)
		})
	})
	return r
}

// SetCredentials changes the account accepted by the token endpoint.
func (c *Controller) SetCredentials(username, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
	c.password = password
}

// FailOn makes the controller answer method+path with status and body.
func (c *Controller) FailOn(method, path string, status int, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[method+" "+path] = failure{status: status, body: body}
}

// SetStatuses sets the job statuses returned by successive polls. The last
// one repeats once the list is exhausted. An empty string is served as null.
func (c *Controller) SetStatuses(statuses ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = statuses
	c.polls = 0
}

// Calls returns every request received so far.
func (c *Controller) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// Hosts returns the hostnames registered into an inventory, in order.
func (c *Controller) Hosts(inventoryID int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.hosts[inventoryID]...)
}

// InventoryName returns the name an inventory was created with.
func (c *Controller) InventoryName(inventoryID int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inventories[inventoryID].Name
}

// InventoryOrganization returns the organization an inventory was created in.
func (c *Controller) InventoryOrganization(inventoryID int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inventories[inventoryID].Organization
}

// Launches returns every job template launch received.
func (c *Controller) Launches() []Launch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Launch(nil), c.launches...)
}

func (c *Controller) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.calls = append(c.calls, Call{Method: r.Method, Path: r.URL.Path})
		f, failing := c.failures[r.Method+" "+r.URL.Path]
		c.mu.Unlock()

		if failing {
			w.WriteHeader(f.status)
			io.WriteString(w, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *Controller) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+c.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *Controller) createToken(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	wantUser, wantPass := c.username, c.password
	c.mu.Unlock()

	user, pass, ok := r.BasicAuth()
	if !ok || user != wantUser || pass != wantPass {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid username/password."})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": 1, "token": c.Token})
}

func (c *Controller) createInventory(w http.ResponseWriter, r *http.Request) {
	var inv inventory
	if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	if inv.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"name": {"This field may not be blank."}})
		return
	}

	c.mu.Lock()
	id := c.nextInvID
	c.nextInvID++
	c.inventories[id] = inv
	c.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id": id, "name": inv.Name, "description": inv.Description, "organization": inv.Organization,
	})
}

func (c *Controller) addHost(w http.ResponseWriter, r *http.Request) {
	invID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	var host struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&host); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	if host.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"name": {"This field may not be blank."}})
		return
	}

	c.mu.Lock()
	c.hosts[invID] = append(c.hosts[invID], host.Name)
	n := len(c.hosts[invID])
	c.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": invID*1000 + n, "name": host.Name, "inventory": invID})
}

func (c *Controller) launch(w http.ResponseWriter, r *http.Request) {
	templateID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	var body struct {
		Inventory int             `json:"inventory"`
		ExtraVars json.RawMessage `json:"extra_vars"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	c.mu.Lock()
	id := c.nextJobID
	c.nextJobID++
	c.launches = append(c.launches, Launch{Template: templateID, Inventory: body.Inventory, ExtraVars: body.ExtraVars})
	c.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"job": id, "id": id, "job_template": templateID, "inventory": body.Inventory, "status": "pending",
	})
}

func (c *Controller) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}

	c.mu.Lock()
	var status interface{}
	if len(c.statuses) > 0 {
		i := c.polls
		if i >= len(c.statuses) {
			i = len(c.statuses) - 1
		}
		if s := c.statuses[i]; s != "" {
			status = s
		}
	}
	c.polls++
	c.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id": id, "name": fmt.Sprintf("job-%d", id), "status": status,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
