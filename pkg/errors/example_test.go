// Package errors provides examples of structured error handling in the dashboard.
package errors_test

import (
	"fmt"
	"io"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/errors"
)

// Example demonstrates basic error creation and wrapping.
func Example() {
	// Create a new error with type
	err := errors.New(errors.ErrorTypeValidation, "unsupported filter column")

	// Add context details
	err = err.WithDetail("column", "color").
		WithDetail("operation", "filtered_data")

	fmt.Println(err.Error())

	// Output:
	// validation: unsupported filter column
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	originalErr := io.ErrUnexpectedEOF

	err := errors.Wrap(originalErr, errors.ErrorTypeFile, "failed to read parquet footer").
		WithDetail("file", "results.parquet")

	if errors.IsType(err, errors.ErrorTypeFile) {
		fmt.Println("This is a file error")
	}
	fmt.Println(err)

	// Output:
	// This is a file error
	// file: failed to read parquet footer: unexpected EOF
}

// Example_errorChain shows how to chain multiple error contexts.
func Example_errorChain() {
	err := openEngine()
	if err != nil {
		err = errors.Wrap(err, errors.ErrorTypeQuery, "summary query failed").
			WithDetail("operation", "summary_stats")
		fmt.Println("Full error chain:", err)
	}

	// Output:
	// Full error chain: query: summary query failed: connection: failed to open columnar engine
}

// openEngine simulates an engine initialization error
func openEngine() error {
	return errors.New(errors.ErrorTypeConnection, "failed to open columnar engine").
		WithDetail("driver", "sqlite")
}

// ExampleIsType demonstrates checking error types.
func ExampleIsType() {
	connErr := errors.New(errors.ErrorTypeConnection, "connection failed")
	valErr := errors.New(errors.ErrorTypeValidation, "invalid input")

	wrappedErr := errors.Wrap(connErr, errors.ErrorTypeQuery, "query failed")

	fmt.Printf("Is connection error: %v\n", errors.IsType(connErr, errors.ErrorTypeConnection))
	fmt.Printf("Is validation error: %v\n", errors.IsType(valErr, errors.ErrorTypeValidation))

	// IsType inspects the outermost structured error
	fmt.Printf("Wrapped error is query type: %v\n", errors.IsType(wrappedErr, errors.ErrorTypeQuery))
	fmt.Printf("Wrapped error type: %s\n", errors.TypeOf(wrappedErr))
	fmt.Printf("Plain error type: %s\n", errors.TypeOf(io.EOF))

	// Output:
	// Is connection error: true
	// Is validation error: true
	// Wrapped error is query type: true
	// Wrapped error type: query
	// Plain error type: internal
}

// ExampleNewf shows formatted messages.
func ExampleNewf() {
	err := errors.Newf(errors.ErrorTypeData, "unsupported arrow type %s for column %q", "struct", "meta")
	fmt.Println(err)

	// Output:
	// data: unsupported arrow type struct for column "meta"
}
