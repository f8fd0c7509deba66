package tennis

import "github.com/marshallshelly/pebble-apps/internal/rpc"

// Register exposes the tennis procedures on srv.
func (s *Service) Register(srv *rpc.Server) {
	rpc.Register(srv, "tennis.createPlayer", s.CreatePlayer)
	rpc.Register(srv, "tennis.searchPlayers", s.SearchPlayers)
	rpc.Register(srv, "tennis.getPlayers", s.SearchPlayers)
	rpc.Register(srv, "tennis.getPlayerById", s.GetPlayerByID)
	rpc.Register(srv, "tennis.updatePlayer", s.UpdatePlayer)
	rpc.Register(srv, "tennis.deletePlayer", s.DeletePlayer)

	rpc.Register(srv, "tennis.createConnection", s.CreateConnection)
	rpc.Register(srv, "tennis.getConnections", s.GetConnections)
	rpc.Register(srv, "tennis.getConnectionById", s.GetConnectionByID)
	rpc.Register(srv, "tennis.updateConnection", s.UpdateConnection)
	rpc.Register(srv, "tennis.respondToConnection", s.RespondToConnection)
	rpc.Register(srv, "tennis.deleteConnection", s.DeleteConnection)
}
