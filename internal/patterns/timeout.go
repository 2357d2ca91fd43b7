package patterns

import "time"

// DefaultTimeout is the default timeout for HTTP requests to external
// collaborators (auth, notification)
const DefaultTimeout = 3 * time.Second
