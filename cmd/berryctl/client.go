package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

func newClient(apiURL string) *resty.Client {
	return resty.New().
		SetBaseURL(apiURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
}

// printBody pretty-prints a JSON response body, falling back to raw output.
func printBody(out io.Writer, body []byte) error {
	var pretty interface{}
	if err := json.Unmarshal(body, &pretty); err != nil {
		_, err = out.Write(body)
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(pretty)
}

func checkStatus(resp *resty.Response, want int) error {
	if resp.StatusCode() != want {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func actorQuery(actor string, override bool) map[string]string {
	q := map[string]string{}
	if actor != "" {
		q["asActor"] = actor
	}
	if override {
		q["adminOverride"] = strconv.FormatBool(override)
	}
	return q
}

type createParams struct {
	Content    string   `json:"content"`
	Type       string   `json:"type,omitempty"`
	CreatedBy  string   `json:"createdBy,omitempty"`
	Visibility string   `json:"visibility,omitempty"`
	SharedWith []string `json:"sharedWith,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	References []string `json:"references,omitempty"`
}

func runCreate(apiURL string, p createParams, out io.Writer) error {
	resp, err := newClient(apiURL).R().SetBody(p).Post("/api/memories")
	if err != nil {
		return err
	}
	if err := checkStatus(resp, http.StatusCreated); err != nil {
		return err
	}
	return printBody(out, resp.Body())
}

func runGet(apiURL, id, actor string, override bool, out io.Writer) error {
	resp, err := newClient(apiURL).R().
		SetQueryParams(actorQuery(actor, override)).
		Get("/api/memories/" + id)
	if err != nil {
		return err
	}
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return err
	}
	return printBody(out, resp.Body())
}

func runDelete(apiURL, id, actor string, override bool, out io.Writer) error {
	resp, err := newClient(apiURL).R().
		SetQueryParams(actorQuery(actor, override)).
		Delete("/api/memories/" + id)
	if err != nil {
		return err
	}
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %s\n", id)
	return nil
}

func runShare(apiURL, id, visibility string, sharedWith []string, actor string, override bool, out io.Writer) error {
	body := map[string]interface{}{
		"visibility":    visibility,
		"sharedWith":    sharedWith,
		"asActor":       actor,
		"adminOverride": override,
	}
	resp, err := newClient(apiURL).R().SetBody(body).Patch("/api/memories/" + id + "/visibility")
	if err != nil {
		return err
	}
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return err
	}
	return printBody(out, resp.Body())
}

type searchParams struct {
	Query      string   `json:"query,omitempty"`
	Type       string   `json:"type,omitempty"`
	CreatedBy  string   `json:"createdBy,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	References []string `json:"references,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

func runSearch(apiURL string, p searchParams, actor string, override bool, out io.Writer) error {
	body := map[string]interface{}{
		"query":      p.Query,
		"type":       p.Type,
		"createdBy":  p.CreatedBy,
		"tags":       p.Tags,
		"references": p.References,
		"limit":      p.Limit,
	}
	if actor != "" {
		body["asActor"] = actor
		body["adminOverride"] = override
	}
	resp, err := newClient(apiURL).R().SetBody(body).Post("/api/search")
	if err != nil {
		return err
	}
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return err
	}
	return printBody(out, resp.Body())
}
