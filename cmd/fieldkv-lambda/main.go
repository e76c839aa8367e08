// Command fieldkv-lambda serves one fieldkv function handler, chosen by
// FIELDKV_HANDLER (load, query or clear).
package main

import (
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/roach88/fieldkv/internal/lambdafn"
)

func main() {
	fn, err := lambdafn.Select(os.LookupEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fieldkv-lambda:", err)
		os.Exit(1)
	}
	lambda.Start(fn)
}
