package integrations_test

import (
	"fmt"

	"github.com/matzehuels/pixclock/pkg/integrations"
)

func ExampleURLEncode() {
	// Coordinates and names are escaped for query strings
	fmt.Println(integrations.URLEncode("37.5665,126.978"))
	fmt.Println(integrations.URLEncode("Asia/Seoul"))
	// Output:
	// 37.5665%2C126.978
	// Asia%2FSeoul
}

func Example_errors() {
	// Standard errors for upstream operations
	fmt.Println("ErrNotFound:", integrations.ErrNotFound)
	fmt.Println("ErrNetwork:", integrations.ErrNetwork)
	// Output:
	// ErrNotFound: resource not found
	// ErrNetwork: network error
}
