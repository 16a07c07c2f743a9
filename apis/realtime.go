// Copyright 2021-2022 The httpmq Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package apis

import (
	"net/http"

	"github.com/colabnet/docwatch/realtime"
	"github.com/gorilla/mux"
)

// RegisterRealtimeRoute install the realtime change feed end-point under the parent router
//
// Realtime godoc
// @Summary Realtime change feed
// @Description Upgrade to a websocket carrying subscribe / unsubscribe requests from the client
// @Description and collection / document updates to the client
// @tags Realtime
// @Success 101 {string} string "switching protocols"
// @Failure 400 {string} string "error"
// @Failure 503 {string} string "shutting down"
// @Router /v1/realtime [get]
func RegisterRealtimeRoute(parent *mux.Router, server realtime.Server) {
	_ = RegisterPathPrefix(parent, "/v1/realtime", MethodHandlers{
		"get": func(w http.ResponseWriter, r *http.Request) {
			server.ServeWebsocket(w, r)
		},
	})
}
