package command_test

import (
	"bufio"
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"playerctld/internal/client"
	"playerctld/internal/command"
)

func newClientPair() (*client.Client, net.Conn) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	defer ln.Close()

	acceptCh := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		acceptCh <- c
	}()

	peer, err := net.Dial("tcp", ln.Addr().String())
	Expect(err).NotTo(HaveOccurred())
	server := <-acceptCh

	return client.New(server, 7, -1, 0, 8192, 2048), peer
}

var _ = Describe("Builtin", func() {
	var (
		b    *command.Builtin
		c    *client.Client
		peer net.Conn
	)

	BeforeEach(func() {
		b = command.NewBuiltin()
		c, peer = newClientPair()
	})

	AfterEach(func() {
		peer.Close()
	})

	It("answers ping with no output of its own", func() {
		outcome := b.Execute(c, "ping")
		Expect(outcome).To(Equal(command.OK))
	})

	It("sets permission and reports it back via status", func() {
		Expect(b.Execute(c, "permission 5")).To(Equal(command.OK))
		Expect(c.Permission).To(Equal(uint32(5)))

		Expect(b.Execute(c, "status")).To(Equal(command.OK))
		c.FlushOutput()

		reader := bufio.NewReader(peer)
		line, err := reader.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(Equal("uptime: 0\n"))

		line, err = reader.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(Equal("client_num: 7\n"))

		line, err = reader.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(Equal("permission: 5\n"))
	})

	It("rejects an unknown command with an ACK line", func() {
		outcome := b.Execute(c, "frobnicate")
		Expect(outcome).To(Equal(command.ContinueNoOK))
		c.FlushOutput()

		reader := bufio.NewReader(peer)
		line, err := reader.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(Equal("ACK [5@0] {frobnicate} unknown command\n"))
	})

	It("returns Kill for the kill command", func() {
		Expect(b.Execute(c, "kill")).To(Equal(command.Kill))
	})

	It("parks the client in idle mode and reports ContinueNoOK", func() {
		outcome := b.Execute(c, "idle player")
		Expect(outcome).To(Equal(command.ContinueNoOK))
		Expect(c.IdleWaiting).To(BeTrue())
	})
})
