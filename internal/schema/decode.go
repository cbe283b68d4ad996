package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rumor-ml/commons.systems/fidelity/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report field paths with their JSON names so schema errors point at the
	// wire field, not the Go field.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeAccountsResponse validates the raw accounts response JSON against the
// expected shape. Any missing or mistyped field fails the whole response.
func DecodeAccountsResponse(raw []byte) (*AccountsResponse, error) {
	var resp AccountsResponse
	if err := decodeJSON(raw, &resp, false); err != nil {
		return nil, err
	}
	if err := checkRequired(&resp); err != nil {
		return nil, err
	}
	for i, asset := range *resp.Data.GetContext.Person.Assets {
		if err := checkRequired(&asset); err != nil {
			return nil, prefixPath(err, fmt.Sprintf("data.getContext.person.assets[%d]", i))
		}
	}
	return &resp, nil
}

// DecodeTransactionsResponse validates the raw transactions response JSON
// against the expected shape.
func DecodeTransactionsResponse(raw []byte) (*TransactionsResponse, error) {
	var resp TransactionsResponse
	if err := decodeJSON(raw, &resp, false); err != nil {
		return nil, err
	}
	if err := checkRequired(&resp); err != nil {
		return nil, err
	}
	for i, entry := range *resp.Data.GetTransactions.Historys {
		if err := checkRequired(&entry); err != nil {
			return nil, prefixPath(err, fmt.Sprintf("data.getTransactions.historys[%d]", i))
		}
	}
	return &resp, nil
}

// DecodeTransactionsRequest parses a rendered request body under the strict
// contract: unknown fields forbidden, every named field required, types
// exact, txnCat present and null.
func DecodeTransactionsRequest(body []byte) (*TransactionsRequest, error) {
	var req TransactionsRequest
	if err := decodeJSON(body, &req, true); err != nil {
		return nil, err
	}
	if err := checkRequired(&req); err != nil {
		return nil, err
	}
	for i, detail := range *req.Variables.AcctDetailList {
		if err := checkRequired(&detail); err != nil {
			return nil, prefixPath(err, fmt.Sprintf("variables.acctDetailList[%d]", i))
		}
	}
	criteria := req.Variables.SearchCriteriaDetail
	if !bytes.Equal(bytes.TrimSpace(criteria.TxnCat), []byte("null")) {
		return nil, domain.SchemaError("variables.searchCriteriaDetail.txnCat",
			"must be present and null", nil)
	}
	return &req, nil
}

// EncodeTransactionsRequest re-serializes a validated request model. Paired
// with DecodeTransactionsRequest it round-trips rendered template text
// through the strict schema instead of trusting the text directly.
func EncodeTransactionsRequest(req *TransactionsRequest) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, domain.SchemaError("", "failed to re-serialize request body", err)
	}
	return data, nil
}

// decodeJSON unmarshals data into v, translating decoder failures into
// schema errors that carry the originating field path. strict additionally
// rejects fields outside the model.
func decodeJSON(data []byte, v any, strict bool) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return domain.SchemaError(typeErr.Field,
				fmt.Sprintf("expected %s, got JSON %s", typeErr.Type, typeErr.Value), err)
		}
		return domain.SchemaError("", "document does not match the expected shape", err)
	}
	return nil
}

// checkRequired runs struct-level validation and flattens the result into a
// single schema error naming every failing field path.
func checkRequired(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.SchemaError("", "validation failed", err)
	}
	paths := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		paths = append(paths, trimStructName(fe.Namespace()))
	}
	return domain.SchemaError(strings.Join(paths, ", "), "required field missing", err)
}

// trimStructName drops the leading Go struct name from a validator
// namespace, leaving the JSON field path.
func trimStructName(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// prefixPath rewrites a nested element's schema error so its path is rooted
// at the enclosing document.
func prefixPath(err error, prefix string) error {
	var serr *domain.Error
	if errors.As(err, &serr) && serr.Kind == domain.KindSchema {
		path := serr.Path
		if path != "" {
			path = prefix + "." + path
		} else {
			path = prefix
		}
		return domain.SchemaError(path, "required field missing", serr)
	}
	return err
}
