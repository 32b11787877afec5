package ws

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// replayHeader tells the fabric to replay this connection on a specific
// instance. The client retries transparently; the redirect is idempotent.
const replayHeader = "fly-replay"

// replayTarget extracts the target-instance hint from the handshake: the
// machine_id query parameter wins, then the fly-machine-id cookie. Empty
// when the request already belongs here.
func replayTarget(c *gin.Context, selfID string) string {
	hint := c.Query("machine_id")
	if hint == "" {
		if cookie, err := c.Cookie("fly-machine-id"); err == nil {
			hint = cookie
		}
	}
	if hint != "" && hint != selfID {
		return hint
	}
	return ""
}

// redirectToInstance answers the handshake with a protocol-level redirect
// instead of upgrading.
func redirectToInstance(c *gin.Context, instanceID string) {
	log.Printf("[WS] Replaying connection to instance %s", instanceID)
	c.Header(replayHeader, "instance="+instanceID)
	c.Status(http.StatusTemporaryRedirect)
}
