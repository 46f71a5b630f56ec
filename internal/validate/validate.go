// Package validate implements declarative request validation.
//
// Every route that takes parameters has an entry in a static rule table:
// an ordered list of field rules, each naming where the field lives
// (path params or JSON body), whether it is required, and which format
// rules apply. The middleware walks the list in declared order and
// short-circuits on the FIRST violation with a 422 response — no
// aggregated error lists, one message per failure:
//
//	params[userId]: Invalid or missing ':userId'
//	body[email]: Invalid or missing 'email'
//	body[githubRepo]: Invalid 'githubRepo'        (optional field, present but malformed)
//
// If every rule passes, the request is forwarded to the handler unchanged
// (the body is buffered and restored, so the handler can decode it again).
//
// Format checks are ozzo-validation rules (is.Email, is.URL, is.MongoID),
// so adding a field is one line in the table, not new code.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Location says where a field is read from.
type Location string

const (
	InParams Location = "params" // chi path parameter
	InBody   Location = "body"   // top-level JSON body field
)

// Field is a single validation rule: one field of one route.
type Field struct {
	Name     string
	In       Location
	Required bool
	Rules    []validation.Rule
}

// RuleSet is the ordered list of field rules for one route.
type RuleSet []Field

// nonEmptyString requires a JSON string with visible content. Decoded JSON
// gives us any-typed values, so the type check is part of the rule.
var nonEmptyString = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok || s == "" {
		return errors.New("must be a non-empty string")
	}
	return nil
})

// wholeNumber requires an integral JSON number (encoding/json decodes all
// numbers as float64). Points are whole — 10.7 is rejected, not truncated.
var wholeNumber = validation.By(func(value interface{}) error {
	f, ok := value.(float64)
	if !ok || f != math.Trunc(f) {
		return errors.New("must be a whole number")
	}
	return nil
})

// list requires a JSON array.
var list = validation.By(func(value interface{}) error {
	if _, ok := value.([]interface{}); !ok {
		return errors.New("must be a list")
	}
	return nil
})

// userID is shared by every route with a {userId} path parameter.
// Identifiers are 24-char hex strings, which is exactly what is.MongoID checks.
var userID = Field{Name: "userId", In: InParams, Required: true, Rules: []validation.Rule{is.MongoID}}

// table is the process-wide route → rules mapping. It is read-only at
// request time; Route() resolves entries once, during route wiring.
var table = map[string]RuleSet{
	"users.show":           {userID},
	"users.showByUsername": {{Name: "username", In: InParams, Required: true}},
	// ozzo's format rules (is.Email, is.URL) skip empty values, so every
	// string field pairs them with nonEmptyString — "" must fail the rule,
	// not slip past it.
	"users.create": {
		{Name: "email", In: InBody, Required: true, Rules: []validation.Rule{nonEmptyString, is.Email}},
		{Name: "githubToken", In: InBody, Required: true, Rules: []validation.Rule{nonEmptyString}},
		{Name: "githubUsername", In: InBody, Required: true, Rules: []validation.Rule{nonEmptyString}},
		{Name: "githubRepo", In: InBody, Required: true, Rules: []validation.Rule{nonEmptyString, is.URL}},
		{Name: "scores", In: InBody, Required: false, Rules: []validation.Rule{list}},
	},
	"users.update": {
		userID,
		{Name: "email", In: InBody, Required: false, Rules: []validation.Rule{nonEmptyString, is.Email}},
		{Name: "githubRepo", In: InBody, Required: false, Rules: []validation.Rule{nonEmptyString, is.URL}},
	},
	"users.updateScore": {
		userID,
		{Name: "challenge", In: InBody, Required: true, Rules: []validation.Rule{nonEmptyString}},
		{Name: "points", In: InBody, Required: true, Rules: []validation.Rule{wholeNumber}},
	},
	"users.delete": {userID},
}

// Route returns the validation middleware for the given route key.
// An unknown key is a wiring bug, so it fails loudly at startup rather
// than silently skipping validation.
func Route(key string) func(http.Handler) http.Handler {
	rules, ok := table[key]
	if !ok {
		panic(fmt.Sprintf("validate: no rule set registered for route %q", key))
	}
	return rules.Middleware()
}

// Middleware wraps a handler with this rule set.
func (rs RuleSet) Middleware() func(http.Handler) http.Handler {
	needsBody := false
	for _, f := range rs {
		if f.In == InBody {
			needsBody = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			if needsBody {
				// Buffer the body so the handler can decode it again after us.
				// A body that isn't a JSON object decodes to nil, and every
				// required body field then reports "Invalid or missing". An
				// unreadable body is treated the same way: no fields could be
				// read, so the first required field produces the 422.
				buf, err := io.ReadAll(r.Body)
				if err != nil {
					buf = nil
				}
				r.Body = io.NopCloser(bytes.NewReader(buf))
				if len(bytes.TrimSpace(buf)) > 0 {
					_ = json.Unmarshal(buf, &body)
				}
			}

			for _, f := range rs {
				if msg, ok := f.check(r, body); !ok {
					writeError(w, msg)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// check runs one field rule. It returns ok=false and the failure message
// on the first violation.
func (f Field) check(r *http.Request, body map[string]any) (string, bool) {
	var value any
	var present bool

	switch f.In {
	case InParams:
		s := chi.URLParam(r, f.Name)
		present = s != ""
		value = s
	case InBody:
		value, present = body[f.Name]
		if present && value == nil {
			present = false // explicit null counts as absent
		}
	}

	if !present {
		if f.Required {
			return f.message(true), false
		}
		return "", true
	}

	if err := validation.Validate(value, f.Rules...); err != nil {
		// Required fields always report the combined message; only an
		// optional field that is present but malformed gets the short form.
		return f.message(f.Required), false
	}

	return "", true
}

// message renders the contract error string. Path parameters are displayed
// with their route placeholder (':userId'), body fields by plain name.
func (f Field) message(orMissing bool) string {
	display := f.Name
	if f.In == InParams {
		display = ":" + f.Name
	}
	if orMissing {
		return fmt.Sprintf("%s[%s]: Invalid or missing '%s'", f.In, f.Name, display)
	}
	return fmt.Sprintf("%s[%s]: Invalid '%s'", f.In, f.Name, display)
}

// writeError emits the standard {status, message} error body with 422.
// The validator runs before the handler, so it writes its own response
// rather than going through the handler package's error mapping.
func writeError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	_ = json.NewEncoder(w).Encode(struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	}{http.StatusUnprocessableEntity, message})
}
