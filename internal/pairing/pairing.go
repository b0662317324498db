package pairing

import (
	"errors"
	"net"
	"sync"
	"time"

	"fabula/internal/repo"
)

var (
	ErrInvalidToken = errors.New("invalid pairing token")
	ErrExpiredToken = errors.New("expired pairing token")
)

// Payload — данные для передачи вне канала (QR-код на экране рабочего стола).
type Payload struct {
	Host  string `json:"host"`
	Port  string `json:"port"`
	Token string `json:"token"`
}

// Coordinator выдаёт короткоживущие одноразовые pairing-токены и хранит их
// в памяти процесса. Фонового чистильщика нет: срок жизни проверяется в
// момент предъявления токена.
type Coordinator struct {
	mu     sync.Mutex
	tokens map[string]time.Time // token -> issued_at

	ttl  time.Duration
	port string
	now  func() time.Time
}

func New(ttl time.Duration, port string) *Coordinator {
	return &Coordinator{
		tokens: make(map[string]time.Time),
		ttl:    ttl,
		port:   port,
		now:    time.Now,
	}
}

// Issue создаёт новый токен. Одновременно может жить несколько
// неиспользованных токенов, каждый строго одноразовый.
func (c *Coordinator) Issue() (Payload, error) {
	token, err := repo.NewAuthToken()
	if err != nil {
		return Payload{}, err
	}
	c.mu.Lock()
	c.tokens[token] = c.now()
	c.mu.Unlock()
	return Payload{Host: localIP(), Port: c.port, Token: token}, nil
}

// Consume гасит токен. Неизвестный/повторно предъявленный — ErrInvalidToken,
// просроченный — ErrExpiredToken (запись при этом удаляется).
// Если последующая запись устройства не удалась, токен возвращают Restore.
func (c *Coordinator) Consume(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	issued, ok := c.tokens[token]
	if !ok {
		return ErrInvalidToken
	}
	delete(c.tokens, token)
	if c.now().Sub(issued) > c.ttl {
		return ErrExpiredToken
	}
	return nil
}

// Restore возвращает токен после неудачной регистрации, чтобы сбой
// хранилища не сжигал ещё живой токен.
func (c *Coordinator) Restore(token string) {
	c.mu.Lock()
	c.tokens[token] = c.now()
	c.mu.Unlock()
}

// Outstanding — число невыданных токенов (для отладки/тестов).
func (c *Coordinator) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tokens)
}

// localIP определяет адрес машины в локальной сети через UDP-трюк:
// соединение не устанавливается, ядро лишь выбирает исходящий интерфейс.
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return addr.IP.String()
}
