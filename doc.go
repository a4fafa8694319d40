// Package agentenv supervises a companion agent backend process: it
// launches the agent binary on a dynamically allocated loopback port,
// polls its health endpoint until ready, and tears the process tree down
// again on demand or at host shutdown.
//
// Working directories and executable paths are validated against
// traversal and shell-injection patterns before anything is spawned, the
// child environment is composed per launch (with secrets redacted from
// logs), and termination escalates from a graceful signal to a forced
// kill (POSIX) or uses the system tree-kill utility (Windows).
//
// # Basic Usage
//
//	import "github.com/giantswarm/agentenv"
//
//	ctx := context.Background()
//
//	sup := agentenv.NewSupervisor(
//	    agentenv.WithInstallDir("/opt/myapp/bin"),
//	)
//	if err := sup.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer sup.Shutdown()
//
//	h, err := sup.Launch(ctx, agentenv.LaunchRequest{
//	    WorkingDir: "/home/user/project",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Talk to the agent at http://127.0.0.1:<h.Port()> using the
//	// environment's shared secret, then:
//	sup.Terminate(h)
//
// Each Launch owns an independent port and process; concurrent launches
// are safe and are not deduplicated. Hook Shutdown into the host's exit
// path so every still-registered agent is terminated best-effort.
package agentenv
