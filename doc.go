/*
Package fakeprod serves a fake production-like directory API for local
testing: a deterministic stand-in for the real service that tooling and
integration tests can point at.

The server keeps a flat collection of user records in memory (optionally
seeded from a CSV file) and answers searches written as LDAP-style boolean
filters, evaluated by the filter subpackage:

	GET /users?filter=(&(memberOf=Admins)(userAccountControl>=512))

Beyond user search it provides:

  - GET /users/{username} and POST /users for record lookup and creation
  - file-backed mocks registered under a label via POST /admin/mocks and
    served at GET /mocks/{label} with a stored status, headers and type
  - latency (delay_ms) and fault (error_rate) injection on /users
  - GET /inspect for the recent request history and GET /inspect/stream for
    a live websocket feed of it

# Running

	store := fakeprod.NewUserStore()
	store.LoadCSV("fake_users.csv")

	server := fakeprod.NewServer(store, fakeprod.NewMockRegistry("./data"), logger)
	http.ListenAndServe(":8080", server.Router())

or use the fakeprod command, which loads configuration from flags,
environment variables and an optional config file.
*/
package fakeprod
