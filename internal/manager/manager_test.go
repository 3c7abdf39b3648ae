package manager_test

import (
	"bufio"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"playerctld/internal/command"
	"playerctld/internal/idle"
	"playerctld/internal/manager"
)

func startManager(maxConnections int) (addr string, m *manager.Manager, runErr chan error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())

	tunables := manager.Tunables{
		Timeout:             time.Minute,
		MaxConnections:      maxConnections,
		MaxCommandListSize:  2048 * 1024,
		MaxOutputBufferSize: 8192 * 1024,
	}
	m = manager.New([]net.Listener{ln}, tunables, command.NewBuiltin(), nil, nil)

	runErr = make(chan error, 1)
	go func() { runErr <- m.Run() }()
	return ln.Addr().String(), m, runErr
}

func dialAndGreet(addr string) net.Conn {
	conn, err := net.Dial("tcp", addr)
	Expect(err).NotTo(HaveOccurred())
	Expect(conn.SetDeadline(time.Now().Add(2 * time.Second))).To(Succeed())

	greeting, err := bufio.NewReader(conn).ReadString('\n')
	Expect(err).NotTo(HaveOccurred())
	Expect(greeting).To(Equal("OK MPD 0.1.0\n"))
	return conn
}

var _ = Describe("Manager", func() {
	var (
		addr    string
		m       *manager.Manager
		runErr  chan error
	)

	BeforeEach(func() {
		addr, m, runErr = startManager(10)
	})

	AfterEach(func() {
		m.Shutdown()
		Eventually(runErr, time.Second).Should(Receive(BeNil()))
	})

	It("greets a new connection and answers ping with a bare OK", func() {
		conn := dialAndGreet(addr)
		defer conn.Close()

		_, err := conn.Write([]byte("ping\n"))
		Expect(err).NotTo(HaveOccurred())

		reply, err := bufio.NewReader(conn).ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal("OK\n"))
	})

	It("runs a silent command list with a single trailing OK", func() {
		conn := dialAndGreet(addr)
		defer conn.Close()

		_, err := conn.Write([]byte("command_list_begin\nping\nping\ncommand_list_end\n"))
		Expect(err).NotTo(HaveOccurred())

		reader := bufio.NewReader(conn)
		reply, err := reader.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal("OK\n"))
	})

	It("emits list_OK between entries in a verbose command list", func() {
		conn := dialAndGreet(addr)
		defer conn.Close()

		_, err := conn.Write([]byte("command_list_ok_begin\nping\nping\ncommand_list_end\n"))
		Expect(err).NotTo(HaveOccurred())

		reader := bufio.NewReader(conn)
		var lines []string
		for i := 0; i < 3; i++ {
			line, err := reader.ReadString('\n')
			Expect(err).NotTo(HaveOccurred())
			lines = append(lines, line)
		}
		Expect(lines).To(Equal([]string{"list_OK\n", "list_OK\n", "OK\n"}))
	})

	It("delivers a changed event to a client parked in idle mode", func() {
		conn := dialAndGreet(addr)
		defer conn.Close()

		_, err := conn.Write([]byte("idle player\n"))
		Expect(err).NotTo(HaveOccurred())

		m.IdleAdd(idle.Player)

		reader := bufio.NewReader(conn)
		line1, err := reader.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		line2, err := reader.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(line1).To(Equal("changed: player\n"))
		Expect(line2).To(Equal("OK\n"))
	})

	It("refuses connections past max_connections", func() {
		addr, m2, runErr2 := startManager(1)
		defer func() {
			m2.Shutdown()
			Eventually(runErr2, time.Second).Should(Receive(BeNil()))
		}()

		first := dialAndGreet(addr)
		defer first.Close()

		second, err := net.Dial("tcp", addr)
		Expect(err).NotTo(HaveOccurred())
		defer second.Close()
		Expect(second.SetReadDeadline(time.Now().Add(time.Second))).To(Succeed())

		buf := make([]byte, 1)
		_, err = second.Read(buf)
		Expect(err).To(HaveOccurred(), "second connection should be closed without a greeting")
	})

	It("stops the loop and reports ErrKill when a command returns Kill", func() {
		// A manager of its own: the shared one must still be running for
		// AfterEach's Shutdown to receive Run's nil result.
		killAddr, _, killRunErr := startManager(10)
		conn := dialAndGreet(killAddr)
		defer conn.Close()

		_, err := conn.Write([]byte("kill\n"))
		Expect(err).NotTo(HaveOccurred())

		Eventually(killRunErr, time.Second).Should(Receive(MatchError(manager.ErrKill)))
	})
})
