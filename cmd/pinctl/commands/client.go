package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/southflowpeak/pin/internal/dispatch"
)

func baseURL(path string) string {
	return (&url.URL{Scheme: "http", Host: httpAddr, Path: path}).String()
}

func doGet(path string) (dispatch.Response, error) {
	resp, err := http.Get(baseURL(path))
	if err != nil {
		return dispatch.Response{}, fmt.Errorf("pin agent unreachable at %s: %w", httpAddr, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp)
}

func doPost(path string, args url.Values) (dispatch.Response, error) {
	full := baseURL(path)
	if len(args) > 0 {
		full += "?" + args.Encode()
	}
	resp, err := http.Post(full, "application/x-www-form-urlencoded", nil)
	if err != nil {
		return dispatch.Response{}, fmt.Errorf("pin agent unreachable at %s: %w", httpAddr, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp)
}

func decodeResponse(resp *http.Response) (dispatch.Response, error) {
	var out dispatch.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return dispatch.Response{}, fmt.Errorf("invalid response from pin agent: %w", err)
	}
	return out, nil
}

func reportFailure(resp dispatch.Response) error {
	if resp.Success {
		return nil
	}
	if resp.Error != "" {
		return fmt.Errorf("%s", resp.Error)
	}
	return fmt.Errorf("command failed")
}
