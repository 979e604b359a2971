package googlesheets

import "fmt"

// valueRange represents the spreadsheets.values resource.
// Example response:
//
//	{
//	  "range": "'Sign-ups'!A1:D3",
//	  "majorDimension": "ROWS",
//	  "values": [["Name", "Category", "Dish", "Note"], ["Alex", "🍗 Mains", "Chili", ""]]
//	}
type valueRange struct {
	Range          string  `json:"range,omitempty"`
	MajorDimension string  `json:"majorDimension,omitempty"`
	Values         [][]any `json:"values,omitempty"`
}

// clearRequest is the (empty) body of a values.clear call.
type clearRequest struct{}

// apiErrorResponse represents an error response from the Sheets API.
// Example response:
//
//	{
//	  "error": {
//	    "code": 403,
//	    "message": "The caller does not have permission",
//	    "status": "PERMISSION_DENIED"
//	  }
//	}
type apiErrorResponse struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// cellString renders a single cell as text. The API returns formatted cell
// values, which are strings for text cells but can arrive as numbers or
// booleans when a sheet was edited by hand.
func cellString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case float64:
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
